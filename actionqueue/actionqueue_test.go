package actionqueue

import (
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(nil, zerolog.Nop())
	q.Add(InfoServerInitStartedItem())
	q.Add(InfoCloseStartedItem())
	q.Add(InfoCloseCompletedItem())

	first, ok := q.RemoveNext()
	require.True(t, ok)
	require.Equal(t, TypeInfoServerInitStarted, first.Type)

	second, ok := q.RemoveNext()
	require.True(t, ok)
	require.Equal(t, TypeInfoCloseStarted, second.Type)

	third, ok := q.RemoveNext()
	require.True(t, ok)
	require.Equal(t, TypeInfoCloseCompleted, third.Type)

	_, ok = q.RemoveNext()
	require.False(t, ok)
}

func TestQueueDrainDiscardsItems(t *testing.T) {
	q := NewQueue(nil, zerolog.Nop())
	q.Add(InfoServerInitStartedItem())
	q.Add(InfoServerInitStartedItem())
	require.Equal(t, 2, q.Len())

	q.Drain()
	require.Equal(t, 0, q.Len())
}

type fakeSink struct {
	internalErrors []string
	initCompleted  []bool
}

func (f *fakeSink) InternalError(where, msg string) { f.internalErrors = append(f.internalErrors, where+": "+msg) }
func (f *fakeSink) Error(string, string)             {}
func (f *fakeSink) ErrorFromServer(string, string)   {}
func (f *fakeSink) InfoServerInitStarted()           {}
func (f *fakeSink) InfoProtocolVersion(int, int, int, int) {}
func (f *fakeSink) InfoAuthResult(bool, uint32, uint32)    {}
func (f *fakeSink) InfoServerInitCompleted(ok bool)  { f.initCompleted = append(f.initCompleted, ok) }
func (f *fakeSink) InfoCloseStarted()                {}
func (f *fakeSink) InfoCloseCompleted()              {}

type fakeRender struct {
	initW, initH int
	writes       int
}

func (f *fakeRender) Init(w, h int, _ RGB24) bool {
	f.initW, f.initH = w, h
	return true
}
func (f *fakeRender) Close()                                            {}
func (f *fakeRender) Write(int, int, int, int, []byte)                  { f.writes++ }
func (f *fakeRender) Copy(int, int, int, int, int, int)                 {}
func (f *fakeRender) Fill(int, int, int, int, RGB24)                    {}
func (f *fakeRender) DrawInQuad(float64, float64, float64, float64, float64, float64, float64, float64, float64) {
}
func (f *fakeRender) MaxTileProbe(int, int) bool { return true }

func TestPerformQueuedActionsDrainsInOrder(t *testing.T) {
	render := &fakeRender{}
	sink := &fakeSink{}
	q := NewQueue(nil, zerolog.Nop())
	q.Add(InitDisplayItem(ServerInit{Width: 800, Height: 600}))
	q.Add(WriteItem(0, 0, 10, 10, make([]byte, 300)))

	q.PerformQueuedActions(Target{Render: render, Sink: sink})

	require.Equal(t, 800, render.initW)
	require.Equal(t, 600, render.initH)
	require.Equal(t, 1, render.writes)
	require.Equal(t, []bool{true}, sink.initCompleted)
	require.Empty(t, sink.internalErrors)
}

func TestPerformQueuedActionsReportsFailureAndContinues(t *testing.T) {
	render := &fakeRender{}
	sink := &fakeSink{}
	q := NewQueue(nil, zerolog.Nop())
	q.Add(Item{Type: Type(200)}) // unknown type, Perform returns errUnknownItemType
	q.Add(InfoCloseCompletedItem())

	q.PerformQueuedActions(Target{Render: render, Sink: sink})

	require.Len(t, sink.internalErrors, 1)
	require.Equal(t, 0, q.Len())
}

func TestCodecRoundTrip(t *testing.T) {
	cases := []Item{
		InitDisplayItem(ServerInit{
			Width: 1024, Height: 768, BitsPerPixel: 32, Depth: 24,
			BigEndian: false, TrueColor: true,
			RedMax: 255, GreenMax: 255, BlueMax: 255,
			RedShift: 16, GreenShift: 8, BlueShift: 0,
			DesktopName: "test desktop",
		}),
		WriteItem(1, 2, 3, 4, []byte{1, 2, 3, 4, 5, 6}),
		CopyItem(1, 2, 3, 4, 5, 6),
		FillItem(1, 2, 3, 4, RGB24{R: 10, G: 20, B: 30}),
		InternalErrorItem("engine.Run", "boom"),
		ErrorItem("engine.Run", "boom"),
		ErrorFromServerItem("engine.Run", "server says no"),
		InfoServerInitStartedItem(),
		InfoProtocolVersionItem(3, 8, 3, 8),
		InfoAuthResultItem(true, 2, 0),
		InfoServerInitCompletedItem(true),
		InfoCloseStartedItem(),
		InfoCloseCompletedItem(),
	}

	for _, item := range cases {
		encoded, err := Encode(item)
		require.NoError(t, err)

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, item, decoded)
	}
}

func TestEncodeRejectsGetPassword(t *testing.T) {
	_, err := Encode(GetPasswordItem(nil))
	require.Error(t, err)
}

func startEmbeddedNats(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true}
	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()
	if !srv.ReadyForConnections(2 * time.Second) {
		t.Fatal("embedded nats server did not become ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNatsBroadcastRoundTrip(t *testing.T) {
	srv := startEmbeddedNats(t)

	pubConn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer pubConn.Close()

	subConn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer subConn.Close()

	const subject = "rfbcore.session.test"
	received := make(chan Item, 4)
	sub, err := Subscribe(subConn, subject, zerolog.Nop(), func(item Item) {
		received <- item
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	broadcast := NewNatsBroadcast(pubConn, subject, zerolog.Nop())
	require.NoError(t, broadcast.Send(InfoServerInitStartedItem()))
	require.NoError(t, broadcast.Send(InfoCloseCompletedItem()))

	select {
	case item := <-received:
		require.Equal(t, TypeInfoServerInitStarted, item.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first broadcast item")
	}

	select {
	case item := <-received:
		require.Equal(t, TypeInfoCloseCompleted, item.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second broadcast item")
	}
}

func TestSlaveReplicaObservesCloseCompleted(t *testing.T) {
	srv := startEmbeddedNats(t)

	pubConn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer pubConn.Close()

	subConn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer subConn.Close()

	const subject = "rfbcore.session.slave-test"
	queue := NewQueue(nil, zerolog.Nop())
	replica, err := NewSlaveReplica(subConn, subject, queue, zerolog.Nop())
	require.NoError(t, err)
	defer replica.Close()

	broadcast := NewNatsBroadcast(pubConn, subject, zerolog.Nop())
	require.NoError(t, broadcast.Send(InfoServerInitStartedItem()))
	require.NoError(t, broadcast.Send(InfoCloseCompletedItem()))

	select {
	case <-replica.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("slave replica never observed InfoCloseCompleted")
	}

	require.Equal(t, 2, queue.Len())
}
