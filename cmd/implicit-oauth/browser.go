package main

import (
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
)

// browserCommand returns the command that opens url on goos.
func browserCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "darwin":
		return "open", []string{url}, nil
	default:
		return "", nil, errors.New("unsupported platform")
	}
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) {
	name, args, err := browserCommand(runtime.GOOS, url)
	if err == nil {
		err = exec.Command(name, args...).Start()
	}
	if err != nil {
		slog.Error("Failed to open browser", "err", err)
		slog.Info("Please open the authorization URL printed above in your browser")
	}
}
