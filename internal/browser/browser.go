// Package browser opens the dashboard in the operator's desktop browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Commander starts an external program without waiting for it
type Commander interface {
	Start(name string, args ...string) error
}

// ExecCommander runs commands through os/exec
type ExecCommander struct{}

func (ExecCommander) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Opener launches URLs with the platform's URL handler
type Opener struct {
	cmd  Commander
	goos string
}

// New returns an Opener for the running platform
func New() *Opener {
	return &Opener{cmd: ExecCommander{}, goos: runtime.GOOS}
}

// NewWithCommander returns an Opener for goos that starts programs via cmd
func NewWithCommander(cmd Commander, goos string) *Opener {
	return &Opener{cmd: cmd, goos: goos}
}

// Open opens url in the default browser
func (o *Opener) Open(url string) error {
	name, args, err := launcher(o.goos, url)
	if err != nil {
		return err
	}
	if err := o.cmd.Start(name, args...); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	return nil
}

func launcher(goos, url string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
