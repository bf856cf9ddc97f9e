package snippet

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"go.followtheprocess.codes/snip/internal/model"
)

//go:embed templates/curl.txt.tmpl
var curlTempl string

// curlFunctions are custom template functions available in the curlTemplate.
//
//nolint:gochecknoglobals // This has to be here
var curlFunctions = template.FuncMap{
	"shellQuote":   shellQuote,
	"shellWord":    shellWord,
	"printfEscape": printfEscape,
	"header":       curlHeader,
	"string":       func(b []byte) string { return string(b) },
}

// curlTemplate is the parsed curl command line text/template.
//
//nolint:gochecknoglobals // Having the template as a global means it's parsed only once
var curlTemplate = template.Must(template.New("curl").Funcs(curlFunctions).Parse(curlTempl))

// curlData is the data passed to the curlTemplate.
type curlData struct {
	Request

	// Binary bodies can't go in an argument so they're piped in through printf
	Binary bool
}

// curlHeader formats a header for curl's --header flag.
//
// curl drops headers with nothing after the colon so empty values use the
// "Name;" form instead.
func curlHeader(header model.Header) string {
	if header.Value == "" {
		return header.Name + ";"
	}

	return header.Name + ": " + header.Value
}

// curl generates a curl command line.
func curl(req Request) (string, error) {
	data := curlData{
		Request: req,
		Binary:  req.Body != nil && !isText(req.Body),
	}

	buf := &strings.Builder{}
	if err := curlTemplate.Execute(buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// httpie generates an HTTPie command line.
func httpie(req Request) (string, error) {
	if req.Body != nil && !isText(req.Body) {
		return "", ErrBinaryBody
	}

	b := &strings.Builder{}

	if req.Body != nil {
		fmt.Fprintf(b, "printf '%%s' %s | ", shellQuote(string(req.Body)))
	}

	fmt.Fprintf(b, "http %s %s", shellWord(req.Method), shellQuote(req.RawURL))

	for _, header := range req.Headers {
		// Like curl, "Name:" unsets a header, "Name;" sends it empty
		item := header.Name + ":" + header.Value
		if header.Value == "" {
			item = header.Name + ";"
		}

		fmt.Fprintf(b, " \\\n  %s", shellQuote(item))
	}

	b.WriteByte('\n')

	return b.String(), nil
}

// wget generates a GNU Wget command line.
func wget(req Request) (string, error) {
	if req.Body != nil && !isText(req.Body) {
		return "", ErrBinaryBody
	}

	args := []string{"wget --quiet", "--method " + shellWord(req.Method)}

	for _, header := range req.Headers {
		args = append(args, "--header "+shellQuote(header.Name+": "+header.Value))
	}

	if req.Body != nil {
		args = append(args, "--body-data "+shellQuote(string(req.Body)))
	}

	args = append(args, "--output-document", "- "+shellQuote(req.RawURL))

	return strings.Join(args, " \\\n  ") + "\n", nil
}
