// Package pairing parses the QR payload that the desktop shows for
// device pairing.
package pairing

import "encoding/json"

// ConnectionData holds the connection details scanned from the desktop QR
// code.
type ConnectionData struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"token"`
	URL   string `json:"url"`
}

// payload is the raw QR JSON. Fields are decoded loosely so that type
// mismatches can be rejected instead of panicking.
type payload struct {
	Version string          `json:"version"`
	Host    json.RawMessage `json:"host"`
	Port    json.RawMessage `json:"port"`
	Token   json.RawMessage `json:"token"`
	URL     json.RawMessage `json:"url"`
}

// Decode разбирает отсканированный QR payload. Неверные payloads (чужие
// QR-коды, битый JSON, неправильные типы полей) молча отклоняются —
// сканер продолжает работу, ошибок наружу не выдаётся.
func Decode(raw []byte) (ConnectionData, bool) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ConnectionData{}, false
	}

	var data ConnectionData

	// host, token и url должны быть строками, port — числом
	if err := json.Unmarshal(p.Host, &data.Host); err != nil || data.Host == "" {
		return ConnectionData{}, false
	}
	if err := json.Unmarshal(p.Port, &data.Port); err != nil || data.Port <= 0 {
		return ConnectionData{}, false
	}
	if err := json.Unmarshal(p.Token, &data.Token); err != nil || data.Token == "" {
		return ConnectionData{}, false
	}
	if err := json.Unmarshal(p.URL, &data.URL); err != nil || data.URL == "" {
		return ConnectionData{}, false
	}

	return data, true
}
