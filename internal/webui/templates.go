package webui

// Template names of full pages.
const (
	TrialDetailsPage = "trial-details"
	StoryIndexPage   = "story-index"
	StoryPage        = "story"
)

const tmplLayout = `
{{define "layout-head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
{{- if .RefreshSeconds}}
<meta http-equiv="refresh" content="{{.RefreshSeconds}}">
{{- end}}
<title>{{default "Determined" .Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:'Objektiv Mk3',Arial,sans-serif;background:#f7f7f7;color:#262626;font-size:14px;line-height:1.5}
a{color:#1890ff;text-decoration:none}
a:hover{text-decoration:underline}
main{padding:24px}
h1{font-size:20px;font-weight:600;margin-bottom:16px}
h2{font-size:16px;font-weight:600;margin-bottom:8px}
.breadcrumb{display:flex;gap:8px;align-items:center;margin-bottom:16px;color:#8c8c8c}
.breadcrumb .sep{color:#bfbfbf}
.section{background:#fff;border:1px solid #e8e8e8;border-radius:4px;padding:16px;margin-bottom:16px;min-height:48px}
.message{padding:48px;text-align:center;font-size:16px;color:#595959}
.spinner{margin:48px auto;width:32px;height:32px;border:3px solid #e8e8e8;border-top-color:#1890ff;border-radius:50%;animation:spin 1s linear infinite}
.spinner.fill-container{position:absolute;top:50%;left:50%;margin:-16px 0 0 -16px}
.icon{display:inline-block;width:16px;height:16px;border-radius:3px;background:#8c8c8c}
.icon-small{width:12px;height:12px}
.info-box{display:grid;grid-template-columns:max-content 1fr;gap:4px 24px;background:#fff;border:1px solid #e8e8e8;border-radius:4px;padding:16px}
.info-box dt{color:#8c8c8c}
.info-box dd{font-weight:500}
.stories li{margin:4px 0;list-style:none}
@keyframes spin{to{transform:rotate(360deg)}}
</style>
</head>
<body{{if .StreamPath}} data-stream="{{.StreamPath}}"{{end}}>
<main>
{{- if and .Title (not .HideTitle)}}
<h1>{{.Title}}</h1>
{{- end}}
{{end}}

{{define "layout-foot"}}
</main>
{{- if .StreamPath}}
<script>
(function () {
  var path = document.body.dataset.stream;
  if (!path || !window.WebSocket) { return; }
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var sock = new WebSocket(proto + location.host + path);
  var first = true;
  sock.onmessage = function () {
    if (first) { first = false; return; }
    location.reload();
  };
})();
</script>
{{- end}}
</body>
</html>
{{end}}
`

const tmplComponents = `
{{define "icon"}}<i class="icon icon-{{.Name}} icon-{{default "medium" .Size}}" aria-label="{{.Name}}"></i>{{end}}

{{define "link"}}<a href="{{.Path}}">{{.Label}}</a>{{end}}

{{define "message"}}<div class="message">{{.}}</div>{{end}}

{{define "spinner"}}<div class="spinner{{if .FillContainer}} fill-container{{end}}" role="status" aria-label="loading"></div>{{end}}

{{define "section"}}<section class="section"><h2>{{.Title}}</h2></section>{{end}}

{{define "breadcrumb"}}<nav class="breadcrumb" aria-label="breadcrumb">
{{- range $i, $item := .}}
  {{- if $i}}<span class="sep">/</span>{{end}}
  <span class="breadcrumb-item">
  {{- if $item.Icon}}{{template "icon" (dict "Name" $item.Icon "Size" "small")}} {{end}}
  {{- if $item.Path}}{{template "link" $item}}{{else}}<span>{{$item.Label}}</span>{{end -}}
  </span>
{{- end}}
</nav>{{end}}

{{define "experiment-info-box"}}<dl class="info-box">
{{- range .Rows}}
  <dt>{{.Label}}</dt><dd>{{.Value}}</dd>
{{- end}}
  <dt>Hyperparameters</dt><dd>{{if .Hparams}}{{join ", " .Hparams}}{{else}}None{{end}}</dd>
</dl>{{end}}
`

const tmplPages = `
{{define "trial-details"}}{{template "layout-head" .Layout}}
{{- with .View}}
{{- if eq .Kind "LOADING"}}
{{template "spinner" (dict "FillContainer" true)}}
{{- else}}
{{- if .Message}}
{{template "message" .Message}}
{{- end}}
{{- if .Breadcrumb}}
{{template "breadcrumb" .Breadcrumb}}
{{- end}}
{{- range .Sections}}
{{template "section" .}}
{{- end}}
{{- end}}
{{- end}}
{{template "layout-foot" .Layout}}{{end}}

{{define "story-index"}}{{template "layout-head" .Layout}}
<ul class="stories">
{{- range .Stories}}
  <li>{{template "link" .}}</li>
{{- end}}
</ul>
{{template "layout-foot" .Layout}}{{end}}

{{define "story"}}{{template "layout-head" .Layout}}
{{template "experiment-info-box" .InfoBox}}
{{template "layout-foot" .Layout}}{{end}}
`
