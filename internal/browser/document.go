package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/mamamialezatoz/go-techstack/internal/extractor"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

const (
	jsOuterHTML = `() => document.documentElement ? document.documentElement.outerHTML : ""`

	jsScriptSources = `() => JSON.stringify(
		Array.from(document.scripts).map(s => s.src).filter(Boolean))`

	jsLinkHrefs = `() => JSON.stringify(
		Array.from(document.querySelectorAll("link[href]")).map(l => l.href).filter(Boolean))`

	jsMetaTags = `() => JSON.stringify(
		Array.from(document.querySelectorAll("meta")).map(m => ({
			name: m.getAttribute("name") || m.getAttribute("property") || m.getAttribute("http-equiv") || "",
			content: m.getAttribute("content") || ""
		})).filter(m => m.name))`

	jsGlobals = `(names) => {
		const found = {};
		for (const name of names) {
			try {
				const value = window[name];
				if (value === undefined) continue;
				let version = "";
				try {
					const v = value && (value.version || value.VERSION || (value.fn && value.fn.jquery));
					if (typeof v === "string" || typeof v === "number") version = String(v);
				} catch (e) {}
				found[name] = { version: version };
			} catch (e) {}
		}
		return JSON.stringify(found);
	}`

	jsCookie = `() => document.cookie`
)

// pageDocument reads evidence out of a live page with Runtime.evaluate
type pageDocument struct {
	page *rod.Page
	host string
}

var _ extractor.Document = (*pageDocument)(nil)

func newPageDocument(page *rod.Page, host string) *pageDocument {
	return &pageDocument{page: page, host: host}
}

func (d *pageDocument) Hostname() string { return d.host }

func (d *pageDocument) OuterHTML() (string, error) {
	return d.evalString(jsOuterHTML)
}

func (d *pageDocument) ScriptSources() ([]string, error) {
	var out []string
	return out, d.evalJSON(&out, jsScriptSources)
}

func (d *pageDocument) LinkHrefs() ([]string, error) {
	var out []string
	return out, d.evalJSON(&out, jsLinkHrefs)
}

func (d *pageDocument) MetaTags() ([]models.MetaTag, error) {
	var out []models.MetaTag
	return out, d.evalJSON(&out, jsMetaTags)
}

func (d *pageDocument) Globals(names []string) (map[string]models.Global, error) {
	out := make(map[string]models.Global)
	if len(names) == 0 {
		return out, nil
	}
	return out, d.evalJSON(&out, jsGlobals, names)
}

func (d *pageDocument) Cookie() (string, error) {
	return d.evalString(jsCookie)
}

func (d *pageDocument) evalString(js string, args ...interface{}) (string, error) {
	res, err := d.page.Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// evalJSON runs a script that returns JSON.stringify output and decodes it
func (d *pageDocument) evalJSON(v interface{}, js string, args ...interface{}) error {
	raw, err := d.evalString(js, args...)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode page result: %w", err)
	}
	return nil
}
