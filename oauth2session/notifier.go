package oauth2session

// notifier invokes the user-registered refresh callback after every successful
// token rotation. The callback runs on the rotating caller's goroutine, after
// the store update is visible and before any waiter resumes, but its failures
// never propagate: a panicking callback is swallowed and logged.
type notifier struct {
	callback func(Tokens)
	logger   Logger
}

func (n *notifier) rotated(tok Tokens) {
	if n.callback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && n.logger != nil {
			n.logger.Printf("oauth2session: token refresh callback panicked: %v", r)
		}
	}()
	n.callback(tok)
}
