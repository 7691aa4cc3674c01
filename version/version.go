package version

// Version is the version of the trial view server, set at build time with
// -ldflags "-X github.com/determined-ai/trialview/version.Version=<version>".
var Version = "dev"
