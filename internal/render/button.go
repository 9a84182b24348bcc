// Package render produces the toggle button markup shown by the host.
package render

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/lexiqai/live-translator/internal/config"
	"github.com/lexiqai/live-translator/internal/session"
)

const micSVG = `<svg width="{{.Width}}" height="{{.Height}}" fill="none" viewBox="0,0,1024,1024" xmlns="http://www.w3.org/2000/svg">` +
	`<g clip-path="url(#prefix__clip0_239_2)">` +
	`<circle cx="512" cy="512" r="448" fill="{{.Color}}"/>` +
	`<circle cx="512" cy="512" r="480" stroke="{{.Color}}" stroke-opacity=".5" stroke-width="64"/>` +
	`<rect x="388.678" y="256" width="243.45" height="364.551" rx="121.725" fill="#fff"/>` +
	`<path d="M694.551 499.658c0 100.668-81.607 182.276-182.275 182.276S330 600.326 330 499.658" stroke="#fff" stroke-width="64" stroke-linecap="round"/>` +
	`<path d="M544.276 707.32v-32h-64v32h64zm-64 60.68c0 17.673 14.327 32 32 32 17.673 0 32-14.327 32-32h-64zm0-60.68V768h64v-60.68h-64z" fill="#fff"/>` +
	`</g><defs><clipPath id="prefix__clip0_239_2"><path fill="#fff" d="M0 0h1024v1024H0z"/></clipPath></defs></svg>`

const stopSVG = `<svg width="{{.Width}}" height="{{.Height}}" viewBox="0,0,1024,1024" fill="none" xmlns="http://www.w3.org/2000/svg">` +
	`<g clip-path="url(#prefix__clip0_236_16)">` +
	`<circle cx="512" cy="512" r="448" fill="{{.Color}}"/>` +
	`<circle cx="512" cy="512" r="480" stroke="{{.Color}}" stroke-opacity=".5" stroke-width="64"/>` +
	`<rect x="256" y="256" width="512" height="512" rx="64" fill="#fff"/>` +
	`</g><defs><clipPath id="prefix__clip0_236_16"><path fill="#fff" d="M0 0h1024v1024H0z"/></clipPath></defs></svg>`

var (
	micTemplate  = template.Must(template.New("mic").Parse(micSVG))
	stopTemplate = template.Must(template.New("stop").Parse(stopSVG))
)

type buttonData struct {
	Width  string
	Height string
	Color  string
}

// Affordance names the action a click on the button performs
type Affordance string

const (
	AffordanceMic  Affordance = "mic"
	AffordanceStop Affordance = "stop"
)

// AffordanceFor returns stop while a session is active, otherwise mic
func AffordanceFor(state session.State) Affordance {
	if state.Active() {
		return AffordanceStop
	}
	return AffordanceMic
}

// Button renders the toggle for state at the host-allocated size. A
// non-positive dimension fills the container.
func Button(state session.State, theme config.Theme, width, height int) (string, error) {
	theme = theme.WithDefaults()

	tmpl, color := micTemplate, theme.MicColor
	if AffordanceFor(state) == AffordanceStop {
		tmpl, color = stopTemplate, theme.StopColor
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, buttonData{
		Width:  dimension(width),
		Height: dimension(height),
		Color:  color,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func dimension(n int) string {
	if n <= 0 {
		return "100%"
	}
	return strconv.Itoa(n)
}
