package cli

import "fmt"

const usageTemplate = `
Tunno Client

Usage:
  tunno-client [OPTIONS] COMMAND

Options:
  --version          Show version information
  --db PATH          Path to local library database (default: tunno-library.db)
  --data DIR         Directory for downloaded audio and thumbnails (default: tunno-data)
  --history PATH     Path to sync history database (default: tunno-history.db)

Commands:
  sync [PAYLOAD]     Sync the library from a paired desktop server.
                     PAYLOAD is the JSON contents of the QR code shown by
                     the desktop app; omit it to be prompted.
  status             Show local library contents
  history            Show recent sync runs
`

func PrintUsage() {
	fmt.Print(usageTemplate)
}
