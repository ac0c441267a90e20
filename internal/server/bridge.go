package server

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed bridge.html
var bridgeSource string

var bridgeTemplate = template.Must(template.New("bridge").Parse(bridgeSource))

type bridgeData struct {
	AppName     string
	CallbackURL string
	Header      string
}

// callbackURL is the bridge page's fetch target on the bound port.
func callbackURL(port uint16) string {
	return fmt.Sprintf("http://%s:%d%s", LoopbackHost, port, CallbackPath)
}

// renderBridge renders the bridge page for a listener bound to port.
func renderBridge(port uint16, appName string) ([]byte, error) {
	var buf bytes.Buffer
	data := bridgeData{AppName: appName, CallbackURL: callbackURL(port), Header: FullURLHeader}
	if err := bridgeTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render bridge page: %w", err)
	}
	return buf.Bytes(), nil
}
