package status

import (
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type recIndicator struct {
	shows  [][2]string
	colors []Color
}

func (r *recIndicator) Show(h, d string) { r.shows = append(r.shows, [2]string{h, d}) }
func (r *recIndicator) SetColor(c Color) { r.colors = append(r.colors, c) }

func TestMultiFansOut(t *testing.T) {
	a, b := &recIndicator{}, &recIndicator{}
	m := Multi{a, b}
	m.Show("Waiting", "Press B1")
	m.SetColor(Green)

	for _, r := range []*recIndicator{a, b} {
		assert.Equal(t, [][2]string{{"Waiting", "Press B1"}}, r.shows)
		assert.Equal(t, []Color{Green}, r.colors)
	}
}

func TestColorString(t *testing.T) {
	assert.Equal(t, "purple", Purple.String())
	assert.Equal(t, "off", Off.String())
	assert.Equal(t, "orange", Orange.String())
	assert.NotEqual(t, Yellow, Orange)
	assert.Equal(t, [3]bool{Yellow.R, Yellow.G, Yellow.B}, [3]bool{Orange.R, Orange.G, Orange.B})
	assert.Equal(t, "cyan", Color{G: true, B: true}.String())
}

type fakePin struct {
	name   string
	events []string
}

func (p *fakePin) Out(l gpio.Level) error {
	p.events = append(p.events, "out:"+l.String())
	return nil
}

func (p *fakePin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.events = append(p.events, "pwm:"+f.String())
	return nil
}

func (p *fakePin) Name() string { return p.name }

func TestRGBLED(t *testing.T) {
	r, g, b := &fakePin{name: "R"}, &fakePin{name: "G"}, &fakePin{name: "B"}
	led := NewRGBLED(r, g, b)
	led.SetColor(Purple)

	assert.Equal(t, []string{"out:High"}, r.events)
	assert.Equal(t, []string{"out:Low"}, g.events)
	assert.Equal(t, []string{"out:High"}, b.events)
}

func TestBuzzerPatterns(t *testing.T) {
	tests := []struct {
		pattern Pattern
		tones   int
		sleeps  []time.Duration
	}{
		{SingleBeep, 1, []time.Duration{beepDuration}},
		{DoubleBeep, 2, []time.Duration{beepDuration, beepGap, beepDuration}},
		{Pattern(0), 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern.String(), func(t *testing.T) {
			a, b := &fakePin{name: "A"}, &fakePin{name: "B"}
			bz := NewBuzzer(a, b)
			var slept []time.Duration
			bz.sleep = func(d time.Duration) { slept = append(slept, d) }

			bz.Beep(tt.pattern)

			assert.Equal(t, tt.sleeps, slept)
			for _, p := range []*fakePin{a, b} {
				require.Len(t, p.events, 2*tt.tones)
				for i := 0; i < tt.tones; i++ {
					assert.Equal(t, "pwm:"+buzzerFrequency.String(), p.events[2*i])
					assert.Equal(t, "out:Low", p.events[2*i+1])
				}
			}
		})
	}
}

type fakeDrawer struct {
	draws int
	last  image.Image
}

func (d *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.draws++
	d.last = src
	return nil
}

func (d *fakeDrawer) Bounds() image.Rectangle { return image.Rect(0, 0, oledWidth, oledHeight) }

func TestOLEDDrawsOnChangeOnly(t *testing.T) {
	d := &fakeDrawer{}
	o := NewOLED(d)
	o.Show("Recording...", "Samples: 1")
	o.Show("Recording...", "Samples: 1")
	o.Show("Recording...", "Samples: 2")
	o.SetColor(Red)

	assert.Equal(t, 2, d.draws)
	require.NoError(t, o.Close())
}

func TestRenderStatus(t *testing.T) {
	img := renderStatus("Waiting", "Press B1")
	require.Equal(t, image.Rect(0, 0, oledWidth, oledHeight), img.Bounds())

	for x := 0; x < oledWidth; x++ {
		require.Equal(t, image1bit.On, img.BitAt(x, 12), "rule pixel %d", x)
	}
	lit := 0
	for y := 30; y < oledHeight; y++ {
		for x := 0; x < oledWidth; x++ {
			if img.BitAt(x, y) {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0)

	blank := renderStatus("", "")
	for y := 30; y < oledHeight; y++ {
		for x := 0; x < oledWidth; x++ {
			require.False(t, bool(blank.BitAt(x, y)))
		}
	}
}

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	retained []bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload.([]byte))
	p.retained = append(p.retained, retained)
	return doneToken{}
}

func TestMQTTMirrorPublishesChanges(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTTMirror(pub, "datalogger/status")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.Show("Waiting", "Press B1")
	m.Show("Waiting", "Press B1")
	m.SetColor(Green)
	m.SetColor(Green)

	require.Len(t, pub.payloads, 2)
	assert.Equal(t, []string{"datalogger/status", "datalogger/status"}, pub.topics)
	assert.Equal(t, []bool{true, true}, pub.retained)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(pub.payloads[1], &snap))
	assert.Equal(t, Snapshot{Headline: "Waiting", Detail: "Press B1", Color: "green", Time: fixed}, snap)
}

func TestHubBroadcasts(t *testing.T) {
	h := NewHub()
	h.Show("Initializing", "Please wait...")

	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "Initializing", snap.Headline)

	h.SetColor(Yellow)
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, "yellow", snap.Color)
	assert.Equal(t, "Please wait...", snap.Detail)

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Initializing", got.Headline)
	assert.Equal(t, "yellow", got.Color)
}

func TestHubDoesNotWaitOnSlowClient(t *testing.T) {
	h := NewHub()
	stalled := &hubClient{send: make(chan Snapshot, clientQueue)}
	h.register(stalled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10*clientQueue; i++ {
			h.Show("Recording...", fmt.Sprintf("Samples: %d", i+1))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Show blocked on a client that never reads")
	}
	assert.Len(t, stalled.send, clientQueue)
	assert.Equal(t, fmt.Sprintf("Samples: %d", 10*clientQueue), h.Snapshot().Detail)

	h.unregister(stalled)
	h.unregister(stalled)
	h.Show("Data saved!", "")
}

func TestLogIndicatorAndBeeper(t *testing.T) {
	l := &LogIndicator{}
	l.Show("a", "b")
	l.Show("a", "b")
	l.SetColor(Red)
	assert.Equal(t, "a", l.headline)
	assert.Equal(t, Red, l.color)
	LogBeeper{}.Beep(DoubleBeep)
}
