package listener_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgevane/httpmetrics/internal/listener"
	"github.com/edgevane/httpmetrics/pkg/apperror"
)

type fakeListener struct {
	addr net.Addr
}

func (f fakeListener) Accept() (net.Conn, error) { return nil, nil }
func (f fakeListener) Close() error              { return nil }
func (f fakeListener) Addr() net.Addr            { return f.addr }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := listener.NewRegistry()

	l := fakeListener{addr: &net.TCPAddr{IP: net.ParseIP("10.1.2.3"), Port: 8080}}
	require.NoError(t, r.Register("http", l))

	host, port, err := r.GetAddress("http")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", host)
	assert.Equal(t, 8080, port)
}

func TestRegistry_UnknownRef(t *testing.T) {
	r := listener.NewRegistry()

	_, _, err := r.GetAddress("nope")
	require.ErrorIs(t, err, apperror.ErrUnknownListener)
}

func TestRegistry_Deregister(t *testing.T) {
	r := listener.NewRegistry()
	r.RegisterAddr("http", "127.0.0.1", 80)

	_, _, err := r.GetAddress("http")
	require.NoError(t, err)

	r.Deregister("http")
	_, _, err = r.GetAddress("http")
	require.ErrorIs(t, err, apperror.ErrUnknownListener)
}

func TestRegistry_Overwrite(t *testing.T) {
	r := listener.NewRegistry()
	r.RegisterAddr("http", "127.0.0.1", 80)
	r.RegisterAddr("http", "127.0.0.1", 81)

	_, port, err := r.GetAddress("http")
	require.NoError(t, err)
	assert.Equal(t, 81, port)
}
