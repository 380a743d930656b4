package paho

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/tele"
)

const testTimeout = 5 * time.Second

func TestTransport(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		rc      packet.ConnackCode
		expect  bool
		state   tele.StateCode
		publish bool
	}{
		{"accepted", packet.ConnectionAccepted, true, tele.StateConnected, true},
		{"bad-credentials", packet.BadUsernameOrPassword, false, tele.StateBadCredentials, false},
		{"not-authorized", packet.NotAuthorized, false, tele.StateUnauthorized, false},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			ln, err := net.Listen("tcp", "127.0.0.1:")
			require.NoError(t, err)
			defer ln.Close()
			host, portString, err := net.SplitHostPort(ln.Addr().String())
			require.NoError(t, err)
			port, err := strconv.ParseUint(portString, 10, 16)
			require.NoError(t, err)

			// fake broker
			done := make(chan struct{})
			go func() {
				defer close(done)
				conn, err := ln.Accept()
				if err != nil {
					t.Error(err)
					return
				}
				defer conn.Close()
				_ = conn.SetDeadline(time.Now().Add(testTimeout))
				b := transport.NewNetConn(conn)
				pkt, err := b.Receive()
				require.NoError(t, err)
				conpkt, ok := pkt.(*packet.Connect)
				require.True(t, ok, pkt.String())
				assert.Equal(t, "dev1", conpkt.ClientID)
				assert.Equal(t, "token1", conpkt.Username)
				connack := packet.NewConnack()
				connack.ReturnCode = c.rc
				require.NoError(t, b.Send(connack, false))
				if !c.publish {
					return
				}
				pkt, err = b.Receive()
				require.NoError(t, err)
				publish, ok := pkt.(*packet.Publish)
				require.True(t, ok, pkt.String())
				assert.Equal(t, "v1/devices/me/telemetry", publish.Message.Topic)
				assert.Equal(t, `{"temperature":21.5,"humidity":47.2}`, string(publish.Message.Payload))
			}()

			tr := New(Options{NetworkTimeout: testTimeout, Log: log2.NewTest(t, log2.LDebug)})
			tr.SetEndpoint(host, uint16(port))
			begin := time.Now()
			assert.Equal(t, c.expect, tr.Connect("dev1", "token1", ""))
			assert.Equal(t, c.state, tr.State())
			// broker answered, refused connect must not wait for network timeout
			assert.Less(t, int64(time.Since(begin)), int64(testTimeout/2))
			if c.publish {
				assert.True(t, tr.Publish("v1/devices/me/telemetry", []byte(`{"temperature":21.5,"humidity":47.2}`)))
			} else {
				assert.False(t, tr.Publish("v1/devices/me/telemetry", []byte(`{}`)))
			}
			<-done
			tr.Close()
			assert.Equal(t, tele.StateDisconnected, tr.State())
		})
	}
}
