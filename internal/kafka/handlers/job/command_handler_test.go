package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/pdf-merger/internal/model"
	jobsvc "github.com/aliskhannn/pdf-merger/internal/service/job"
)

type fakeService struct {
	submitted []model.JobRequest
	cancelled []uuid.UUID
	submitErr error
	cancelErr error
}

func (f *fakeService) Submit(_ context.Context, req model.JobRequest) (uuid.UUID, error) {
	f.submitted = append(f.submitted, req)
	return uuid.New(), f.submitErr
}

func (f *fakeService) Cancel(id uuid.UUID) error {
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}

func message(t *testing.T, cmd model.Command) kafka.Message {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return kafka.Message{Value: data}
}

func TestHandleSubmit(t *testing.T) {
	svc := &fakeService{}
	h := NewCommandHandler(svc)

	req := model.JobRequest{Inputs: []string{"a.png", "b.pdf"}, Output: "out.pdf"}
	err := h.Handle(context.Background(), message(t, model.Command{Type: model.CommandSubmit, Request: &req}))

	require.NoError(t, err)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, req.Inputs, svc.submitted[0].Inputs)
}

func TestHandleSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     model.Command
		svcErr  error
		wantErr bool
	}{
		{"missing request", model.Command{Type: model.CommandSubmit}, nil, true},
		{"invalid request is dropped", model.Command{Type: model.CommandSubmit, Request: &model.JobRequest{}}, jobsvc.ErrInvalidRequest, false},
		{"service failure is retried", model.Command{Type: model.CommandSubmit, Request: &model.JobRequest{}}, errors.New("db down"), true},
		{"unknown type", model.Command{Type: "pause"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCommandHandler(&fakeService{submitErr: tt.svcErr})
			err := h.Handle(context.Background(), message(t, tt.cmd))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHandleCancel(t *testing.T) {
	id := uuid.New()

	svc := &fakeService{}
	require.NoError(t, NewCommandHandler(svc).Handle(context.Background(), message(t, model.Command{Type: model.CommandCancel, JobID: id})))
	assert.Equal(t, []uuid.UUID{id}, svc.cancelled)

	svc = &fakeService{cancelErr: jobsvc.ErrJobNotRunning}
	assert.NoError(t, NewCommandHandler(svc).Handle(context.Background(), message(t, model.Command{Type: model.CommandCancel, JobID: id})))
}

func TestHandleMalformed(t *testing.T) {
	err := NewCommandHandler(&fakeService{}).Handle(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}
