package pairing

import (
	"encoding/json"
	"fmt"
	"net"

	qrcode "github.com/skip2/go-qrcode"
)

// payloadVersion guards against clients decoding a payload layout they do
// not understand.
const payloadVersion = "1.0"

// Payload is the connection info the mobile client scans from the QR code.
type Payload struct {
	Version string `json:"version"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

// NewPayload builds the pairing payload for the given listen address and
// token.
func NewPayload(host string, port int, token string) Payload {
	return Payload{
		Version: payloadVersion,
		Host:    host,
		Port:    port,
		Token:   token,
		URL:     fmt.Sprintf("http://%s:%d", host, port),
	}
}

// Encode returns the JSON form embedded into the QR code.
func (p Payload) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pairing payload: %w", err)
	}
	return data, nil
}

// QRCodePNG renders the payload as a QR code PNG of the given pixel size.
func (p Payload) QRCodePNG(size int) ([]byte, error) {
	data, err := p.Encode()
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(string(data), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// LocalIP returns the outbound LAN address, falling back to loopback.
// Адрес определяется без отправки пакетов, dial только выбирает интерфейс.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
