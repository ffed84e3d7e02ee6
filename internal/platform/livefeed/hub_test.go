package livefeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newClient(topics ...string) *Client {
	return &Client{ID: "c", Topics: topics, Send: make(chan []byte, 8)}
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	hub := NewHub()
	client := newClient(DoctorTopic("doc-1"))
	hub.Register(client)

	event := Event{
		Type:      EventReportRouted,
		Topic:     DoctorTopic("doc-1"),
		ReportID:  "r1",
		PatientID: "p1",
		Status:    "pending-doctor-review",
		Timestamp: time.Now(),
	}
	if err := hub.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case data := <-client.Send:
		var got Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != EventReportRouted || got.ReportID != "r1" {
			t.Errorf("unexpected event: %+v", got)
		}
	default:
		t.Fatal("expected event in send buffer")
	}
}

func TestHub_PublishDoesNotCrossTopics(t *testing.T) {
	hub := NewHub()
	docClient := newClient(DoctorTopic("doc-1"))
	otherClient := newClient(DoctorTopic("doc-2"))
	hub.Register(docClient)
	hub.Register(otherClient)

	hub.Publish(context.Background(), Event{Type: EventReportRouted, Topic: DoctorTopic("doc-1")})

	if len(docClient.Send) != 1 {
		t.Errorf("expected 1 event for doc-1, got %d", len(docClient.Send))
	}
	if len(otherClient.Send) != 0 {
		t.Errorf("expected no events for doc-2, got %d", len(otherClient.Send))
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	client := newClient(PatientTopic("p1"))
	hub.Register(client)

	if hub.ClientCount() != 1 || hub.TopicCount(PatientTopic("p1")) != 1 {
		t.Fatal("expected registered client")
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 || hub.TopicCount(PatientTopic("p1")) != 0 {
		t.Error("expected client to be removed")
	}
	if _, open := <-client.Send; open {
		t.Error("expected send channel to be closed")
	}

	// Second unregister is a no-op, not a panic.
	hub.Unregister(client)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub()
	client := &Client{ID: "slow", Topics: []string{DoctorTopic("doc-1")}, Send: make(chan []byte, 1)}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(context.Background(), Event{Topic: DoctorTopic("doc-1")})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}

func TestTopicsFor(t *testing.T) {
	cases := []struct {
		name  string
		roles []string
		want  int
	}{
		{"doctor", []string{"doctor"}, 1},
		{"patient", []string{"patient"}, 1},
		{"admin gets both", []string{"admin"}, 2},
		{"no roles", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			topics := TopicsFor("u1", tc.roles)
			if len(topics) != tc.want {
				t.Errorf("expected %d topics, got %v", tc.want, topics)
			}
		})
	}
}
