package snippet

import (
	"fmt"
	"net/http"
	"strings"
)

// checkFetch rejects requests the fetch API refuses to send.
func checkFetch(req Request) error {
	switch strings.ToUpper(req.Method) {
	case http.MethodConnect, http.MethodTrace, "TRACK":
		return fmt.Errorf("%w: fetch forbids %s", ErrUnsupportedMethod, req.Method)
	case http.MethodGet, http.MethodHead:
		if req.Body != nil {
			return fmt.Errorf("%w: fetch cannot send a body with %s", ErrBodyNotAllowed, req.Method)
		}
	}

	if req.Body != nil && !isText(req.Body) {
		return ErrBinaryBody
	}

	return nil
}

// fetchInit renders the init object passed to fetch.
//
// Headers are passed as a list of pairs which, unlike an object, keeps
// their order and any repeats.
func fetchInit(req Request) string {
	fields := []string{"  method: " + jsString(req.Method)}

	if len(req.Headers) != 0 {
		pairs := make([]string, 0, len(req.Headers))
		for _, header := range req.Headers {
			pairs = append(pairs, fmt.Sprintf("    [%s, %s]", jsString(header.Name), jsString(header.Value)))
		}

		fields = append(fields, "  headers: [\n"+strings.Join(pairs, ",\n")+"\n  ]")
	}

	if req.Body != nil {
		fields = append(fields, "  body: "+jsString(string(req.Body)))
	}

	return "{\n" + strings.Join(fields, ",\n") + "\n}"
}

// fetch generates a browser fetch call.
func fetch(req Request) (string, error) {
	if err := checkFetch(req); err != nil {
		return "", err
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "fetch(%s, %s)\n", jsString(req.RawURL), fetchInit(req))
	b.WriteString("  .then(response => response.text())\n")
	b.WriteString("  .then(console.log)\n")
	b.WriteString("  .catch(console.error);\n")

	return b.String(), nil
}

// nodeFetch generates a call to the fetch built into Node.js.
func nodeFetch(req Request) (string, error) {
	if err := checkFetch(req); err != nil {
		return "", err
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "const response = await fetch(%s, %s);\n\n", jsString(req.RawURL), fetchInit(req))
	b.WriteString("console.log(await response.text());\n")

	return b.String(), nil
}

// xhr generates an XMLHttpRequest.
func xhr(req Request) (string, error) {
	switch strings.ToUpper(req.Method) {
	case http.MethodConnect, http.MethodTrace, "TRACK":
		return "", fmt.Errorf("%w: XMLHttpRequest forbids %s", ErrUnsupportedMethod, req.Method)
	}

	if req.Body != nil && !isText(req.Body) {
		return "", ErrBinaryBody
	}

	b := &strings.Builder{}
	b.WriteString("const xhr = new XMLHttpRequest();\n")
	b.WriteString("xhr.withCredentials = true;\n\n")
	b.WriteString("xhr.addEventListener(\"readystatechange\", function () {\n")
	b.WriteString("  if (this.readyState === this.DONE) {\n")
	b.WriteString("    console.log(this.responseText);\n")
	b.WriteString("  }\n")
	b.WriteString("});\n\n")

	fmt.Fprintf(b, "xhr.open(%s, %s);\n", jsString(req.Method), jsString(req.RawURL))

	for _, header := range req.Headers {
		fmt.Fprintf(b, "xhr.setRequestHeader(%s, %s);\n", jsString(header.Name), jsString(header.Value))
	}

	body := "null"
	if req.Body != nil {
		body = jsString(string(req.Body))
	}

	fmt.Fprintf(b, "\nxhr.send(%s);\n", body)

	return b.String(), nil
}

// axios generates an axios request for Node.js.
func axios(req Request) (string, error) {
	if req.Body != nil && !isText(req.Body) {
		return "", ErrBinaryBody
	}

	fields := []string{
		"  method: " + jsString(req.Method),
		"  url: " + jsString(req.RawURL),
	}

	if len(req.Headers) != 0 {
		headers := combineHeaders(req.Headers)

		entries := make([]string, 0, len(headers))
		for _, header := range headers {
			entries = append(entries, fmt.Sprintf("    %s: %s", jsString(header.Name), jsString(header.Value)))
		}

		fields = append(fields, "  headers: {\n"+strings.Join(entries, ",\n")+"\n  }")
	}

	if req.Body != nil {
		fields = append(fields, "  data: "+jsString(string(req.Body)))
	}

	b := &strings.Builder{}
	b.WriteString("const axios = require(\"axios\");\n\n")
	fmt.Fprintf(b, "const response = await axios.request({\n%s\n});\n\n", strings.Join(fields, ",\n"))
	b.WriteString("console.log(response.data);\n")

	return b.String(), nil
}
