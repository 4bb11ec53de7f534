package adapter

import (
	"time"

	"deskrag/internal/api"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
)

func ToInitJobResponse(id string, traceId string) api.InitJobResponse {
	return api.InitJobResponse{
		JobId:   id,
		Status:  string(jobmodel.JobStatusQueued),
		TraceId: traceId,
	}
}

func ToJobStatusResponse(job jobmodel.Job) api.JobStatusResponse {
	res := api.JobStatusResponse{
		JobId:       job.Id,
		Status:      job.Status,
		CurrentStep: string(job.CurrentStep),
		Result:      job.Payload.Result,
	}
	if job.Error.Message != "" || job.Error.Code != 0 {
		res.Error = job.Error.Message
	}
	return res
}

func ToSessionResponse(session sessionmodel.Session, summary string, messages []sessionmodel.Message) api.GetSessionResponse {
	out := api.GetSessionResponse{
		SessionId: session.Id,
		Title:     session.Title,
		CreatedAt: session.CreatedAt.Format(time.RFC3339),
		Summary:   summary,
		Messages:  make([]api.SessionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		out.Messages = append(out.Messages, api.SessionMessage{
			Id:        m.Id,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
