package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"taskrelay/internal/model"
)

type fakeAcker struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error { f.acked = true; return nil }

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error { return nil }

type transition struct {
	status model.TaskStatus
	result *string
	errMsg *string
}

type mockTransitioner struct {
	transitions []transition
	failOn      model.TaskStatus
}

func (m *mockTransitioner) SetStatus(ctx context.Context, id uuid.UUID, status model.TaskStatus, result, errMsg *string) (*model.Task, error) {
	if m.failOn != "" && status == m.failOn {
		return nil, errors.New("store unavailable")
	}
	m.transitions = append(m.transitions, transition{status: status, result: result, errMsg: errMsg})
	return &model.Task{ID: id, Status: status}, nil
}

func TestExtractTaskID(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"id field", `{"id":"` + id.String() + `"}`, false},
		{"task_id field", `{"task_id":"` + id.String() + `"}`, false},
		{"not json", `not json`, true},
		{"missing id", `{"name":"T1"}`, true},
		{"id wrong type", `{"id":42}`, true},
		{"id not a uuid", `{"id":"abc"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractTaskID([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != id {
				t.Errorf("expected %s, got %s", id, got)
			}
		})
	}
}

func TestHandleDeliverySuccess(t *testing.T) {
	id := uuid.New()
	tr := &mockTransitioner{}
	c := NewConsumer("amqp://localhost", "tasks", 10, tr)
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"id":"` + id.String() + `"}`),
	})

	if !acker.acked {
		t.Error("expected delivery to be acked")
	}
	if len(tr.transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(tr.transitions))
	}
	if tr.transitions[0].status != model.TaskStatusInProgress {
		t.Errorf("expected first transition IN_PROGRESS, got %s", tr.transitions[0].status)
	}
	if tr.transitions[1].status != model.TaskStatusCompleted {
		t.Errorf("expected second transition COMPLETED, got %s", tr.transitions[1].status)
	}
	if tr.transitions[1].result == nil || *tr.transitions[1].result == "" {
		t.Error("expected a result on completion")
	}
}

func TestHandleDeliveryReplay(t *testing.T) {
	id := uuid.New()
	tr := &mockTransitioner{}
	c := NewConsumer("amqp://localhost", "tasks", 10, tr)
	body := []byte(`{"id":"` + id.String() + `"}`)

	first := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: first, Body: body})

	// Broker redelivery of an already-processed message: the replay runs the
	// same IN_PROGRESS -> COMPLETED transitions again and is acked, not nacked.
	second := &fakeAcker{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: second, Body: body})

	if !first.acked || !second.acked {
		t.Fatalf("expected both deliveries acked, got first=%v second=%v", first.acked, second.acked)
	}
	if second.nacked {
		t.Error("expected the replay to not be nacked")
	}
	if len(tr.transitions) != 4 {
		t.Fatalf("expected 4 transitions across both deliveries, got %d", len(tr.transitions))
	}
	want := []model.TaskStatus{
		model.TaskStatusInProgress, model.TaskStatusCompleted,
		model.TaskStatusInProgress, model.TaskStatusCompleted,
	}
	for i, status := range want {
		if tr.transitions[i].status != status {
			t.Errorf("transition %d: expected %s, got %s", i, status, tr.transitions[i].status)
		}
	}
}

func TestHandleDeliveryMalformedPayload(t *testing.T) {
	tr := &mockTransitioner{}
	c := NewConsumer("amqp://localhost", "tasks", 10, tr)
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"name":"no id here"}`),
	})

	if !acker.nacked {
		t.Error("expected delivery to be nacked")
	}
	if acker.requeue {
		t.Error("expected delivery to not be requeued")
	}
	if len(tr.transitions) != 0 {
		t.Errorf("expected no transitions, got %d", len(tr.transitions))
	}
}

func TestHandleDeliveryTransitionFailure(t *testing.T) {
	id := uuid.New()
	tr := &mockTransitioner{failOn: model.TaskStatusInProgress}
	c := NewConsumer("amqp://localhost", "tasks", 10, tr)
	acker := &fakeAcker{}

	c.handleDelivery(context.Background(), amqp.Delivery{
		Acknowledger: acker,
		Body:         []byte(`{"id":"` + id.String() + `"}`),
	})

	if !acker.nacked {
		t.Error("expected delivery to be nacked")
	}
	if acker.requeue {
		t.Error("expected delivery to not be requeued")
	}
}

func TestProcessTaskWorkFailureMarksFailed(t *testing.T) {
	id := uuid.New()
	tr := &mockTransitioner{failOn: model.TaskStatusCompleted}
	c := NewConsumer("amqp://localhost", "tasks", 10, tr)

	err := c.processTask(context.Background(), id)
	if err == nil {
		t.Fatal("expected error when completion cannot be recorded")
	}
	if len(tr.transitions) != 1 || tr.transitions[0].status != model.TaskStatusInProgress {
		t.Fatalf("expected only the IN_PROGRESS transition, got %v", tr.transitions)
	}
}
