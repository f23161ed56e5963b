package ws

// wsSink forwards turn events onto the websocket. wsConn already
// serializes writes, so concurrent responders are safe.
type wsSink struct {
	conn      *wsConn
	sessionID string
}

func (s *wsSink) StartMessage(speaker string) {
	s.conn.send("start", s.sessionID, map[string]string{"speaker": speaker})
}

func (s *wsSink) Fragment(speaker, fragment string) {
	s.conn.send("delta", s.sessionID, map[string]string{"speaker": speaker, "content": fragment})
}

func (s *wsSink) FinalizeMessage(speaker, content string) {
	s.conn.send("message", s.sessionID, map[string]string{"speaker": speaker, "content": content})
}

func (s *wsSink) SpeakerError(speaker string, err error) {
	s.conn.send("error", s.sessionID, map[string]string{"speaker": speaker, "error": err.Error()})
}
