// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package ctrl_test

import (
	"net"
	"testing"
	"time"

	"github.com/gsmcore/gsmcore/internal/ctrl"
	"github.com/gsmcore/gsmcore/internal/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTCP(addr net.Addr) (*tcpClient, error) {
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		return nil, err
	}
	return &tcpClient{conn: conn}, nil
}

func TestParseLineGet(t *testing.T) {
	t.Parallel()
	cmd := ctrl.ParseLine("GET 1 net.mcc")
	assert.Equal(t, ctrl.TypeGet, cmd.Type)
	assert.Equal(t, "1", cmd.ID)
	assert.Equal(t, "net.mcc", cmd.Variable)
}

func TestParseLineSet(t *testing.T) {
	t.Parallel()
	cmd := ctrl.ParseLine("SET 7 bts.0.trx.0.arfcn 42")
	assert.Equal(t, ctrl.TypeSet, cmd.Type)
	assert.Equal(t, "7", cmd.ID)
	assert.Equal(t, "bts.0.trx.0.arfcn", cmd.Variable)
	assert.Equal(t, "42", cmd.Value)
}

func TestParseLineSetIncomplete(t *testing.T) {
	t.Parallel()
	cmd := ctrl.ParseLine("SET 7 bts.0.trx.0.arfcn")
	assert.Equal(t, ctrl.TypeError, cmd.Type)
	assert.Equal(t, "SET incomplete", cmd.Value)
}

func TestParseLineUnknownType(t *testing.T) {
	t.Parallel()
	cmd := ctrl.ParseLine("FROB 1 net.mcc")
	assert.Equal(t, ctrl.TypeError, cmd.Type)
	assert.Equal(t, "err", cmd.ID)
}

func TestParseLineMissingID(t *testing.T) {
	t.Parallel()
	cmd := ctrl.ParseLine("GET")
	assert.Equal(t, ctrl.TypeError, cmd.Type)
	assert.Equal(t, "Missing ID", cmd.Value)
}

func TestFormatRoundTrip(t *testing.T) {
	t.Parallel()
	cmd := ctrl.Cmd{Type: ctrl.TypeGetReply, ID: "3", Variable: "net.mcc", Value: "001"}
	assert.Equal(t, "GET_REPLY 3 net.mcc 001", cmd.Format())
}

func TestRegistryGetSetWildcard(t *testing.T) {
	t.Parallel()
	r := ctrl.NewRegistry()
	arfcn := map[string]string{}
	r.Register("bts.*.trx.*.arfcn",
		func(tokens []string) (string, error) {
			return arfcn[tokens[0]+"."+tokens[1]], nil
		},
		func(tokens []string, value string) error {
			arfcn[tokens[0]+"."+tokens[1]] = value
			return nil
		})

	require.NoError(t, r.Set("bts.0.trx.1.arfcn", "42"))
	v, err := r.Get("bts.0.trx.1.arfcn")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestRegistryUnknownVariable(t *testing.T) {
	t.Parallel()
	r := ctrl.NewRegistry()
	_, err := r.Get("no.such.var")
	assert.Error(t, err)
}

func TestRegistryReadOnly(t *testing.T) {
	t.Parallel()
	r := ctrl.NewRegistry()
	r.Register("net.mcc", func(tokens []string) (string, error) { return "001", nil }, nil)
	assert.Error(t, r.Set("net.mcc", "002"))
}

func TestServerGetSetRoundTripOverTCP(t *testing.T) {
	t.Parallel()
	r := ctrl.NewRegistry()
	value := "001"
	r.Register("net.mcc",
		func(tokens []string) (string, error) { return value, nil },
		func(tokens []string, v string) error { value = v; return nil })

	srv, err := ctrl.Listen(r, "127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	addr := srv.Addr()
	dialDone := make(chan error, 1)
	var client *tcpClient
	go func() {
		c, dialErr := dialTCP(addr)
		client = c
		dialDone <- dialErr
	}()

	accepted, err := srv.AcceptOnce(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, <-dialDone)
	defer client.Close()

	require.NoError(t, client.send(ctrl.Cmd{Type: ctrl.TypeGet, ID: "1", Variable: "net.mcc"}))
	srv.PumpOnce(time.Now().Add(time.Second))

	reply, err := client.recv()
	require.NoError(t, err)
	assert.Equal(t, ctrl.TypeGetReply, reply.Type)
	assert.Equal(t, "001", reply.Value)

	require.NoError(t, client.send(ctrl.Cmd{Type: ctrl.TypeSet, ID: "2", Variable: "net.mcc", Value: "002"}))
	srv.PumpOnce(time.Now().Add(time.Second))
	reply, err = client.recv()
	require.NoError(t, err)
	assert.Equal(t, ctrl.TypeSetReply, reply.Type)
	assert.Equal(t, "002", value)
}

func TestPollTrapsBroadcastsOnChange(t *testing.T) {
	t.Parallel()
	r := ctrl.NewRegistry()
	value := "001"
	r.Register("net.mcc", func(tokens []string) (string, error) { return value, nil }, nil)

	srv, err := ctrl.Listen(r, "127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	addr := srv.Addr()
	dialDone := make(chan error, 1)
	var client *tcpClient
	go func() {
		c, dialErr := dialTCP(addr)
		client = c
		dialDone <- dialErr
	}()
	accepted, err := srv.AcceptOnce(time.Now().Add(time.Second))
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, <-dialDone)
	defer client.Close()

	srv.PollTraps()
	value = "002"
	srv.PollTraps()

	_ = client.conn.SetReadDeadline(time.Now().Add(time.Second))
	reply, err := client.recv()
	require.NoError(t, err)
	assert.Equal(t, ctrl.TypeTrap, reply.Type)
	assert.Equal(t, "net.mcc", reply.Variable)
	assert.Equal(t, "002", reply.Value)
}

type tcpClient struct {
	conn net.Conn
}

func (c *tcpClient) Close() error { return c.conn.Close() }

func (c *tcpClient) send(cmd ctrl.Cmd) error {
	return primitive.WriteIPAFrame(c.conn, primitive.ProtoOSMO, primitive.ExtProtoCTRL, []byte(cmd.Format()))
}

func (c *tcpClient) recv() (ctrl.Cmd, error) {
	_, _, payload, err := primitive.ReadIPAFrame(c.conn)
	if err != nil {
		return ctrl.Cmd{}, err
	}
	return ctrl.ParseLine(string(payload)), nil
}
