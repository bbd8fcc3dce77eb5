package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser launches the default browser at url so the user can approve
// the authorization prompt. The prompter falls back to printing the URL
// when this fails.
func OpenBrowser(url string) error {
	name, args := openerCommand(runtime.GOOS, url)
	if name == "" {
		return fmt.Errorf("no browser opener for %s", runtime.GOOS)
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func openerCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "linux":
		return "xdg-open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", url}
	}
	return "", nil
}
