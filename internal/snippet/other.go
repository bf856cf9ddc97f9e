package snippet

import (
	"fmt"
	"strconv"
	"strings"
)

// pythonRequests generates a python script using the requests library.
func pythonRequests(req Request) (string, error) {
	b := &strings.Builder{}
	b.WriteString("import requests\n\n")
	fmt.Fprintf(b, "url = %s\n\n", jsString(req.RawURL))

	args := []string{jsString(req.Method), "url"}

	if req.Body != nil {
		payload := pyBytes(req.Body)
		if isText(req.Body) {
			payload = jsString(string(req.Body))
		}

		fmt.Fprintf(b, "payload = %s\n\n", payload)

		args = append(args, "data=payload")
	}

	if len(req.Headers) != 0 {
		headers := combineHeaders(req.Headers)

		entries := make([]string, 0, len(headers))
		for _, header := range headers {
			entries = append(entries, fmt.Sprintf("    %s: %s", jsString(header.Name), jsString(header.Value)))
		}

		fmt.Fprintf(b, "headers = {\n%s\n}\n\n", strings.Join(entries, ",\n"))

		args = append(args, "headers=headers")
	}

	fmt.Fprintf(b, "response = requests.request(%s)\n\n", strings.Join(args, ", "))
	b.WriteString("print(response.text)\n")

	return b.String(), nil
}

// goNative generates a Go program using net/http.
func goNative(req Request) (string, error) {
	b := &strings.Builder{}
	b.WriteString("package main\n\n")
	b.WriteString("import (\n")
	b.WriteString("\t\"fmt\"\n")
	b.WriteString("\t\"io\"\n")
	b.WriteString("\t\"net/http\"\n")

	if req.Body != nil {
		b.WriteString("\t\"strings\"\n")
	}

	b.WriteString(")\n\n")
	b.WriteString("func main() {\n")
	fmt.Fprintf(b, "\turl := %s\n\n", strconv.Quote(req.RawURL))

	body := "nil"
	if req.Body != nil {
		fmt.Fprintf(b, "\tpayload := strings.NewReader(%s)\n\n", strconv.Quote(string(req.Body)))

		body = "payload"
	}

	fmt.Fprintf(b, "\treq, err := http.NewRequest(%s, url, %s)\n", strconv.Quote(req.Method), body)
	b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n\n")

	if len(req.Headers) != 0 {
		for _, header := range req.Headers {
			// net/http takes the Host header from the request, not the header map
			if strings.EqualFold(header.Name, "Host") {
				fmt.Fprintf(b, "\treq.Host = %s\n", strconv.Quote(header.Value))
				continue
			}

			fmt.Fprintf(b, "\treq.Header.Add(%s, %s)\n", strconv.Quote(header.Name), strconv.Quote(header.Value))
		}

		b.WriteString("\n")
	}

	b.WriteString("\tres, err := http.DefaultClient.Do(req)\n")
	b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n")
	b.WriteString("\tdefer res.Body.Close()\n\n")
	b.WriteString("\tbody, err := io.ReadAll(res.Body)\n")
	b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n\n")
	b.WriteString("\tfmt.Println(res.Status)\n")
	b.WriteString("\tfmt.Println(string(body))\n")
	b.WriteString("}\n")

	return b.String(), nil
}

// powershellRestMethod generates a PowerShell Invoke-RestMethod call.
func powershellRestMethod(req Request) (string, error) {
	// Invoke-RestMethod -Method only accepts this fixed set
	switch strings.ToUpper(req.Method) {
	case "GET", "HEAD", "POST", "PUT", "DELETE", "TRACE", "OPTIONS", "MERGE", "PATCH":
	default:
		return "", fmt.Errorf("%w: Invoke-RestMethod cannot send %s", ErrUnsupportedMethod, req.Method)
	}

	if req.Body != nil && !isText(req.Body) {
		return "", ErrBinaryBody
	}

	b := &strings.Builder{}
	command := fmt.Sprintf("$response = Invoke-RestMethod -Uri %s -Method %s", psString(req.RawURL), strings.ToUpper(req.Method))

	if len(req.Headers) != 0 {
		b.WriteString("$headers = @{}\n")

		// A hashtable throws on duplicate keys
		for _, header := range combineHeaders(req.Headers) {
			fmt.Fprintf(b, "$headers.Add(%s, %s)\n", psString(header.Name), psString(header.Value))
		}

		b.WriteString("\n")

		command += " -Headers $headers"
	}

	if req.Body != nil {
		command += " -Body " + psString(string(req.Body))
	}

	b.WriteString(command + "\n")

	return b.String(), nil
}

// http11 generates the raw HTTP/1.1 request.
func http11(req Request) (string, error) {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s %s HTTP/1.1\r\n", req.Method, req.URL.RequestURI())

	if !req.Headers.Has("Host") {
		fmt.Fprintf(b, "Host: %s\r\n", req.URL.Host)
	}

	for _, header := range req.Headers {
		fmt.Fprintf(b, "%s: %s\r\n", header.Name, header.Value)
	}

	if req.Body != nil {
		fmt.Fprintf(b, "Content-Length: %d\r\n", len(req.Body))
	}

	b.WriteString("\r\n")
	b.Write(req.Body)

	return b.String(), nil
}

// builtinOptions returns every built in option, in display order.
func builtinOptions() []Option {
	return []Option{
		{
			Target:      "shell",
			TargetTitle: "Shell",
			Client:      "curl",
			Title:       "cURL",
			Description: "cURL is a command line tool and library for transferring data with URL syntax.",
			Link:        "https://curl.se/docs/manpage.html",
			Generate:    curl,
		},
		{
			Target:      "shell",
			TargetTitle: "Shell",
			Client:      "httpie",
			Title:       "HTTPie",
			Description: "HTTPie is a user friendly command line HTTP client.",
			Link:        "https://httpie.io/docs/cli",
			Generate:    httpie,
		},
		{
			Target:      "shell",
			TargetTitle: "Shell",
			Client:      "wget",
			Title:       "Wget",
			Description: "GNU Wget is a non interactive command line tool for retrieving files over HTTP.",
			Link:        "https://www.gnu.org/software/wget/manual/wget.html",
			Generate:    wget,
		},
		{
			Target:      "javascript",
			TargetTitle: "JavaScript",
			Client:      "fetch",
			Title:       "Fetch",
			Description: "The fetch API built into modern browsers.",
			Link:        "https://developer.mozilla.org/en-US/docs/Web/API/Fetch_API",
			Generate:    fetch,
		},
		{
			Target:      "javascript",
			TargetTitle: "JavaScript",
			Client:      "xhr",
			Title:       "XMLHttpRequest",
			Description: "The XMLHttpRequest API, available in every browser.",
			Link:        "https://developer.mozilla.org/en-US/docs/Web/API/XMLHttpRequest",
			Generate:    xhr,
		},
		{
			Target:      "node",
			TargetTitle: "Node.js",
			Client:      "fetch",
			Title:       "Fetch",
			Description: "The fetch API built into Node.js 18 and later.",
			Link:        "https://nodejs.org/api/globals.html#fetch",
			Generate:    nodeFetch,
		},
		{
			Target:      "node",
			TargetTitle: "Node.js",
			Client:      "axios",
			Title:       "Axios",
			Description: "Axios is a promise based HTTP client for the browser and Node.js.",
			Link:        "https://axios-http.com/docs/intro",
			Generate:    axios,
		},
		{
			Target:      "python",
			TargetTitle: "Python",
			Client:      "requests",
			Title:       "Requests",
			Description: "Requests is an elegant and simple HTTP library for Python.",
			Link:        "https://requests.readthedocs.io/",
			Generate:    pythonRequests,
		},
		{
			Target:      "go",
			TargetTitle: "Go",
			Client:      "native",
			Title:       "net/http",
			Description: "The HTTP client in the Go standard library.",
			Link:        "https://pkg.go.dev/net/http",
			Generate:    goNative,
		},
		{
			Target:      "powershell",
			TargetTitle: "PowerShell",
			Client:      "restmethod",
			Title:       "Invoke-RestMethod",
			Description: "The Invoke-RestMethod cmdlet sends HTTP requests and parses the response.",
			Link:        "https://learn.microsoft.com/en-us/powershell/module/microsoft.powershell.utility/invoke-restmethod",
			Generate:    powershellRestMethod,
		},
		{
			Target:      "http",
			TargetTitle: "HTTP",
			Client:      "http1.1",
			Title:       "HTTP/1.1",
			Description: "The raw HTTP/1.1 request as sent on the wire.",
			Link:        "https://www.rfc-editor.org/rfc/rfc9112",
			Generate:    http11,
		},
	}
}
