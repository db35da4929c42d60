package message

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestNATSPublisher_PrefixesSubject(t *testing.T) {
	url := startTestNATS(t)

	sub, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("subscriber connect: %v", err)
	}
	defer sub.Close()
	msgs := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("role.>", msgs); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	pub, err := DialNATS(url, "role")
	if err != nil {
		t.Fatalf("DialNATS: %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{Subject: SubjectAgendaPublished, At: at, Items: []Ref{{ID: "ag_1", Slug: "show"}}}
	if err := pub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case m := <-msgs:
		if m.Subject != "role.agenda.published" {
			t.Fatalf("subject = %q", m.Subject)
		}
		var got Event
		if err := json.Unmarshal(m.Data, &got); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if got.Subject != ev.Subject || !got.At.Equal(at) || len(got.Items) != 1 || got.Items[0] != ev.Items[0] {
			t.Fatalf("payload = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	pub, err := DialNATS(startTestNATS(t), "")
	if err != nil {
		t.Fatalf("DialNATS: %v", err)
	}
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.Publish(ctx, Event{Subject: SubjectAgendaUnpublished}); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDialNATS_Unreachable(t *testing.T) {
	if _, err := DialNATS("nats://127.0.0.1:1", ""); err == nil {
		t.Fatal("expected connect error")
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := LogPublisher{Log: zap.New(core)}

	ev := Event{Subject: SubjectAgendaUnpublished, Items: []Ref{{ID: "ag_1"}, {ID: "ag_2"}}}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries := logs.FilterMessage("event").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["subject"] != SubjectAgendaUnpublished {
		t.Fatalf("subject = %v", fields["subject"])
	}
	ids, ok := fields["ids"].([]interface{})
	if !ok || len(ids) != 2 || ids[0] != "ag_1" || ids[1] != "ag_2" {
		t.Fatalf("ids = %#v", fields["ids"])
	}
}
