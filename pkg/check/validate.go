package check

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Validatable is implemented by anything that has fields that should be validated.
type Validatable interface {
	Validate() []error
}

// Validate walks v, calling Validate on every Validatable it reaches, and returns every failure
// as one error. Each failure names the JSON path of the value it came from, e.g.
// "root.watchers.capacity", so it can be traced back to the configuration file.
func Validate(v interface{}) error {
	w := walker{}
	w.visit(reflect.ValueOf(v), "root")
	if w.errs == nil {
		return nil
	}
	w.errs.ErrorFormat = formatFailures
	return w.errs
}

func formatFailures(errs []error) string {
	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, err.Error())
	}
	sort.Strings(lines)
	return fmt.Sprintf("Check Failed! %d errors found:\n\t%s", len(errs), strings.Join(lines, "\n\t"))
}

type walker struct {
	errs *multierror.Error
}

func (w *walker) visit(v reflect.Value, path string) {
	switch v.Kind() {
	case reflect.Invalid:
		return
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			w.visit(v.Elem(), path)
		}
		return
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.visit(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			w.visit(iter.Value(), fmt.Sprintf("%s[%v]", path, iter.Key().Interface()))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			switch name := jsonName(f); {
			case name == "":
			case f.Anonymous:
				w.visit(v.Field(i), path)
			default:
				w.visit(v.Field(i), path+"."+name)
			}
		}
	}
	w.check(v, path)
}

// check runs v's own Validate, whether it is declared on the value or the pointer receiver.
func (w *walker) check(v reflect.Value, path string) {
	addr := reflect.New(v.Type())
	addr.Elem().Set(v)
	validatable, ok := addr.Interface().(Validatable)
	if !ok {
		return
	}
	for _, err := range validatable.Validate() {
		if err != nil {
			w.errs = multierror.Append(w.errs, errors.Wrapf(err, "error found at %s", path))
		}
	}
}

// jsonName is the key a field marshals under, or "" if it is skipped.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}
