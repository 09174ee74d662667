package e2e

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"wander-core/domain/event"
	"wander-core/transport"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

// BaseWireSuite provides a newline-JSON wire client for scenario tests
// against a running gateway.
type BaseWireSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWireSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.GatewayAddr == "" {
		s.T().Skip("GATEWAY_ADDR not set, skipping wire scenarios")
	}
}

type WireSession struct {
	suite  *BaseWireSuite
	name   string
	conn   net.Conn
	reader *bufio.Reader
}

// Dial opens one gateway session and binds it to the given user.
func (s *BaseWireSuite) Dial(name, userID string) *WireSession {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	conn, err := net.Dial("tcp", s.Config.GatewayAddr)
	s.Require().NoError(err, "Failed to connect to gateway at "+s.Config.GatewayAddr)
	s.T().Cleanup(func() { conn.Close() })

	session := &WireSession{suite: s, name: name, conn: conn, reader: bufio.NewReader(conn)}
	session.Send(event.UserConnected, transport.ConnectPayload{UserID: userID})
	session.WaitFor(event.UpdateOnlineUsers)
	return session
}

func (w *WireSession) Send(name string, payload any) {
	data, err := json.Marshal(payload)
	w.suite.Require().NoError(err)
	line, err := json.Marshal(transport.Envelope{Event: name, Data: data})
	w.suite.Require().NoError(err)

	if w.suite.Config.DebugJSON {
		w.suite.T().Logf("%s SEND %s", w.name, line)
	}
	_, err = w.conn.Write(append(line, '\n'))
	w.suite.Require().NoError(err)
}

// WaitFor reads frames until the wanted event shows up, logging every
// frame along the way.
func (w *WireSession) WaitFor(name string) transport.Envelope {
	deadline := time.Now().Add(5 * time.Second)
	for {
		w.suite.Require().NoError(w.conn.SetReadDeadline(deadline))
		line, err := w.reader.ReadBytes('\n')
		w.suite.Require().NoError(err, "%s waiting for %s", w.name, name)

		envelope, err := transport.DecodeEnvelope(line)
		w.suite.Require().NoError(err)
		if w.suite.Config.DebugJSON {
			w.suite.T().Logf("%s RECV %s", w.name, line)
		} else {
			w.suite.T().Logf("%s RECV [%s]", w.name, envelope.Event)
		}
		if envelope.Event == name {
			return envelope
		}
	}
}

// Decode binds the envelope payload to out.
func (w *WireSession) Decode(envelope transport.Envelope, out any) {
	w.suite.Require().NoError(json.Unmarshal(envelope.Data, out))
}
