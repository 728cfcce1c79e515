package broker

import "go.uber.org/zap"

// Subscribe registers h under every pattern. Several handlers may share a
// pattern; each one runs for every matching message. Registration is
// append-only.
//
// Patterns use the broker's pattern syntax; a pattern without wildcards
// matches its channel literally. Patterns added after Listen has started are
// not subscribed, handlers added to already subscribed patterns are.
func (a *App) Subscribe(h HandlerFunc, patterns ...string) {
	a.regMu.Lock()
	defer a.regMu.Unlock()

	for _, p := range patterns {
		if _, ok := a.handlers[p]; !ok {
			a.patterns = append(a.patterns, p)
			if a.State() == StateListening {
				a.logger.Warn("pattern registered after listen started", zap.String("pattern", p))
			}
		}
		a.handlers[p] = append(a.handlers[p], h)
	}
}

// Handle registers h under a single pattern.
func (a *App) Handle(pattern string, h HandlerFunc) {
	a.Subscribe(h, pattern)
}

// Patterns returns the registered patterns in registration order.
func (a *App) Patterns() []string {
	a.regMu.RLock()
	defer a.regMu.RUnlock()
	return append([]string(nil), a.patterns...)
}

func (a *App) handlersFor(key string) []HandlerFunc {
	a.regMu.RLock()
	defer a.regMu.RUnlock()
	return a.handlers[key]
}
