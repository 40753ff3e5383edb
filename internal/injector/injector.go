// Package injector replaces the content of a tab that was detected as
// dangerous after it already rendered. It is the fallback when a redirect to
// the blocking page is not possible.
package injector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"urlguard/pkg/browser"
	"urlguard/pkg/domain"
	"urlguard/pkg/logger"

	"go.uber.org/zap"
)

// MarkerID is the id of the root element of the warning document. Its
// presence makes repeated injections no-ops.
const MarkerID = "urlguard-emergency-block"

var warningTmpl = template.Must(template.New("warning").Parse(`<div id="{{.Marker}}" style="position:fixed;inset:0;z-index:2147483647;background:#b71c1c;color:#fff;font-family:sans-serif;display:flex;align-items:center;justify-content:center;text-align:center">
<div style="max-width:640px;padding:32px">
<h1 style="font-size:32px;margin:0 0 16px">Dangerous website blocked</h1>
<p style="font-size:18px">This page was identified as high risk and has been blocked to protect you.</p>
<p style="font-size:14px;word-break:break-all;opacity:.85">{{.URL}}</p>
{{- if .Score}}
<p style="font-size:14px;opacity:.85">Risk score: {{.Score}}/100</p>
{{- end}}
<p style="font-size:14px">Close this tab to stay safe.</p>
</div>
</div>`))

// scriptTmpl is executed by text substitution only; every value is a JSON
// encoded literal.
const scriptTmpl = `(function () {
  if (document.getElementById(%[1]s)) { return; }
  document.documentElement.innerHTML = '<head><title>Blocked</title></head><body></body>';
  document.body.innerHTML = %[2]s;
  window.stop();
  history.pushState(null, '', location.href);
  window.addEventListener('popstate', function () { history.pushState(null, '', location.href); });
  ['contextmenu', 'copy', 'cut', 'selectstart', 'dragstart'].forEach(function (ev) {
    document.addEventListener(ev, function (e) { e.preventDefault(); }, true);
  });
})();`

// Document renders the warning document shown for url.
func Document(url string, result *domain.ClassificationResult) (string, error) {
	data := struct {
		Marker string
		URL    string
		Score  string
	}{Marker: MarkerID, URL: url}
	if result != nil && result.RiskScore > 0 {
		data.Score = strconv.Itoa(result.RiskScore)
	}

	var buf bytes.Buffer
	if err := warningTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("could not render warning document: %w", err)
	}

	return buf.String(), nil
}

// Script returns the idempotent script that replaces the current document
// with the warning document, disables history navigation and suppresses the
// context menu and copying.
func Script(url string, result *domain.ClassificationResult) (string, error) {
	doc, err := Document(url, result)
	if err != nil {
		return "", err
	}
	marker, err := json.Marshal(MarkerID)
	if err != nil {
		return "", fmt.Errorf("could not encode marker: %w", err)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("could not encode warning document: %w", err)
	}

	return fmt.Sprintf(scriptTmpl, marker, body), nil
}

// Inject replaces the content of tab. Failures are logged and returned; the
// caller has no further fallback.
func Inject(ctx context.Context, b browser.Browser, tab domain.TabID, url string, result *domain.ClassificationResult) error {
	script, err := Script(url, result)
	if err != nil {
		return err
	}

	if err := b.InjectScript(ctx, tab, script); err != nil {
		logger.Error(ctx, "could not inject emergency block",
			zap.Int("tab_id", int(tab)),
			zap.String("url", url),
			zap.Error(err))

		return fmt.Errorf("could not inject emergency block: %w", err)
	}
	logger.Info(ctx, "emergency block injected", zap.Int("tab_id", int(tab)), zap.String("url", url))

	return nil
}
