package middleware

import (
	"net/http"
	"strconv"

	"deskrag/internal/handlers"
	"deskrag/internal/metrics"
	"deskrag/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var HealthHandler = Wrap(handlers.HealthHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var RetrieveHandler = Wrap(handlers.RetrieveHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)

var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var ListChunksHandler = Wrap(handlers.ListChunksHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)

var CreateSessionHandler = Wrap(handlers.CreateSessionHandler)
var GetSessionHandler = Wrap(handlers.GetSessionHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Info("New request received")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = rateLimiter(re)
	if re.badRequest.isBadRequest {
		return re //stop here if rate limit fails
	}
	re = authenticate(re)
	return re
}
