// Package render turns a stored artifact into a standalone preview document.
//
// ISOLATION MODEL:
// Artifact code is untrusted: an HTML artifact can contain any script its
// author likes. We never sanitize it. Instead every document is served with
// a Content-Security-Policy whose first directive is "sandbox". The browser
// then runs the document in an opaque origin: it cannot read the app's
// cookies or storage, cannot call the API with the viewer's credentials, and
// cannot navigate the parent page. "allow-same-origin" is never granted.
//
// Per type:
//
//	html      the code IS the document           scripts allowed
//	react     runtime wrapper (React+Babel CDN)  scripts allowed, CDN only
//	markdown  escaped, preformatted text         no scripts
//	svg       code inlined unescaped             no scripts
//	mermaid   escaped code block                 no scripts
package render

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"regexp"
	"strings"
	texttemplate "text/template"

	"github.com/sakif/artifact-cms/internal/model"
)

// Strategy names how a type is turned into a document.
type Strategy string

const (
	StrategyDocument     Strategy = "document"      // served verbatim
	StrategyReactRuntime Strategy = "react-runtime" // wrapped in a React/Babel page
	StrategyPreformatted Strategy = "preformatted"  // escaped text in <pre>
	StrategyInlineSVG    Strategy = "inline-svg"    // markup inlined unescaped
	StrategyCodeBlock    Strategy = "code-block"    // escaped <pre><code>
)

// StrategyFor reports the strategy used for t. Unknown types fall back to a
// plain code block.
func StrategyFor(t model.ArtifactType) Strategy {
	switch t {
	case model.TypeHTML:
		return StrategyDocument
	case model.TypeReact:
		return StrategyReactRuntime
	case model.TypeMarkdown:
		return StrategyPreformatted
	case model.TypeSVG:
		return StrategyInlineSVG
	default:
		return StrategyCodeBlock
	}
}

// Document is a complete preview response.
type Document struct {
	ContentType           string
	Body                  []byte
	ContentSecurityPolicy string
}

// Options points the React wrapper at its runtime scripts.
type Options struct {
	ReactURL    string
	ReactDOMURL string
	BabelURL    string
	TailwindURL string
}

// DefaultOptions loads the runtimes from unpkg and the Tailwind CDN.
func DefaultOptions() Options {
	return Options{
		ReactURL:    "https://unpkg.com/react@18/umd/react.production.min.js",
		ReactDOMURL: "https://unpkg.com/react-dom@18/umd/react-dom.production.min.js",
		BabelURL:    "https://unpkg.com/@babel/standalone/babel.min.js",
		TailwindURL: "https://cdn.tailwindcss.com",
	}
}

const (
	htmlContentType = "text/html; charset=utf-8"

	cspScripts = "sandbox allow-scripts"
	cspStatic  = "sandbox; default-src 'none'; style-src 'unsafe-inline'"
	cspSVG     = cspStatic + "; img-src data:"
)

// Renderer builds preview documents. It is safe for concurrent use.
type Renderer struct {
	opts     Options
	reactCSP string
	react    *texttemplate.Template
	static   *htmltemplate.Template
}

// New parses the document templates.
func New(opts Options) (*Renderer, error) {
	reactCSP, err := reactPolicy(opts)
	if err != nil {
		return nil, err
	}

	react, err := texttemplate.New("react").Parse(reactPage)
	if err != nil {
		return nil, fmt.Errorf("render: parsing react template: %w", err)
	}
	static, err := htmltemplate.New("static").Parse(staticPage)
	if err != nil {
		return nil, fmt.Errorf("render: parsing static template: %w", err)
	}

	return &Renderer{opts: opts, reactCSP: reactCSP, react: react, static: static}, nil
}

// reactPolicy allows inline and eval'd scripts (Babel compiles the JSX in
// the page) but only loads external scripts from the runtime origins.
func reactPolicy(opts Options) (string, error) {
	var origins []string
	seen := map[string]bool{}
	for _, raw := range []string{opts.ReactURL, opts.ReactDOMURL, opts.BabelURL, opts.TailwindURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("render: runtime URL %q must be absolute", raw)
		}
		origin := u.Scheme + "://" + u.Host
		if !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	return cspScripts + "; default-src 'none'" +
		"; script-src 'unsafe-inline' 'unsafe-eval' " + strings.Join(origins, " ") +
		"; style-src 'unsafe-inline'; img-src data: https:; font-src data: https:", nil
}

// Render builds the preview document for a.
func (r *Renderer) Render(a *model.Artifact) (*Document, error) {
	if a == nil {
		return nil, errors.New("render: nil artifact")
	}

	switch StrategyFor(a.Type) {
	case StrategyDocument:
		return &Document{ContentType: htmlContentType, Body: []byte(a.Code), ContentSecurityPolicy: cspScripts}, nil
	case StrategyReactRuntime:
		return r.renderReact(a)
	case StrategyPreformatted:
		return r.renderStatic(a, staticData{Title: a.Title, Mode: "pre", Code: a.Code}, cspStatic)
	case StrategyInlineSVG:
		// The SVG is inlined as-is; any <script> inside it is blocked by the
		// policy, not by escaping.
		return r.renderStatic(a, staticData{Title: a.Title, Mode: "svg", Markup: htmltemplate.HTML(a.Code)}, cspSVG)
	default:
		return r.renderStatic(a, staticData{Title: a.Title, Mode: "code", Code: a.Code}, cspStatic)
	}
}

type staticData struct {
	Title  string
	Mode   string
	Code   string
	Markup htmltemplate.HTML
}

func (r *Renderer) renderStatic(a *model.Artifact, data staticData, csp string) (*Document, error) {
	var buf bytes.Buffer
	if err := r.static.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render: artifact %s: %w", a.ID, err)
	}
	return &Document{ContentType: htmlContentType, Body: buf.Bytes(), ContentSecurityPolicy: csp}, nil
}

// scriptClose matches anything that would end the inline <script> early.
var scriptClose = regexp.MustCompile(`(?i)</script`)

func (r *Renderer) renderReact(a *model.Artifact) (*Document, error) {
	code := scriptClose.ReplaceAllStringFunc(a.Code, func(m string) string {
		return `<\/` + m[2:]
	})

	var buf bytes.Buffer
	err := r.react.Execute(&buf, struct {
		Options
		Code string
	}{r.opts, code})
	if err != nil {
		return nil, fmt.Errorf("render: artifact %s: %w", a.ID, err)
	}
	return &Document{ContentType: htmlContentType, Body: buf.Bytes(), ContentSecurityPolicy: r.reactCSP}, nil
}

// reactPage is a text/template: the component source must reach the page
// unescaped for Babel to compile it.
const reactPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<script crossorigin src="{{.ReactURL}}"></script>
<script crossorigin src="{{.ReactDOMURL}}"></script>
<script src="{{.BabelURL}}"></script>
<script src="{{.TailwindURL}}"></script>
</head>
<body>
<div id="root"></div>
<script type="text/babel">
{{.Code}}
const __Mount = typeof Component !== 'undefined' ? Component : () => React.createElement('div', null, 'Component not found');
ReactDOM.createRoot(document.getElementById('root')).render(React.createElement(__Mount));
</script>
</body>
</html>
`

const staticPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; }
pre { margin: 0; padding: 1.5rem; overflow: auto; }
pre.text { white-space: pre-wrap; }
pre.code { background: #111827; color: #f3f4f6; min-height: 100vh; box-sizing: border-box; }
.svg { display: flex; align-items: center; justify-content: center; min-height: 100vh; background: #f9fafb; }
</style>
</head>
<body>
{{- if eq .Mode "svg"}}
<div class="svg">{{.Markup}}</div>
{{- else if eq .Mode "pre"}}
<pre class="text">{{.Code}}</pre>
{{- else}}
<pre class="code"><code>{{.Code}}</code></pre>
{{- end}}
</body>
</html>
`
