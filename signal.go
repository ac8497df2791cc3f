package bunlogs

import (
	"os"
	"os/signal"
	"syscall"
)

// hookSignals registers a best-effort shutdown hook: a termination
// signal triggers Close (bounded by closeTimeout) and is then
// re-delivered so the process's default disposition still applies.
// Returns a stop function that unregisters the hook.
func (l *Logger) hookSignals() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			signal.Stop(sigChan)
			l.Close()
			if p, err := os.FindProcess(os.Getpid()); err == nil {
				p.Signal(sig)
			}
		case <-stop:
			signal.Stop(sigChan)
		}
	}()

	return func() { close(stop) }
}
