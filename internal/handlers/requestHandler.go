package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"deskrag/internal/adapter"
	"deskrag/internal/adapter/utils"
	"deskrag/internal/api"
)

// ChatHandler godoc
// @Summary      Answer a question over the indexed documents
// @Description  Retrieves relevant chunks, builds a citation-constrained prompt and returns a grounded answer (or an abstention).
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest   true  "Question plus optional mode, top_k, min_score, doc_id and session_id"
// @Success      200      {object}  api.ChatResponse  "Answer with citations and latency breakdown"
// @Failure      400      {object}  api.ErrorResponse "Invalid request data"
// @Failure      404      {object}  api.ErrorResponse "Unknown session"
// @Failure      503      {object}  api.ErrorResponse "Vector index or LLM unavailable"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.ChatRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Chat handler reader :", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
			logRH.Warn("Bad Chat Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
			return
		}

		response, err := handlerInstance.ragService.Chat(request.Context(), requestData)
		if err != nil {
			logRH.Warn("Chat request failed", "error:", err)
			writeServiceError(w, err)
			return
		}
		writeJsonResponse(w, http.StatusOK, response)
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// RetrieveHandler godoc
// @Summary      Retrieve chunks without generation
// @Description  Runs embed, vector search and rerank for a question and returns the scored chunks.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      api.RetrieveRequest   true  "Question plus optional top_k, min_score and doc_id"
// @Success      200      {object}  api.RetrieveResponse  "Scored chunks above the floor"
// @Failure      400      {object}  api.ErrorResponse     "Invalid request data"
// @Failure      503      {object}  api.ErrorResponse     "Vector index unavailable"
// @Router       /retrieve [post]
func RetrieveHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.RetrieveRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Retrieve handler reader :", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
			logRH.Warn("Bad Retrieve Request: ", "error:", err)
			WriteErrorResponse(w, http.StatusBadRequest, "Bad Request")
			return
		}

		response, err := handlerInstance.ragService.Retrieve(request.Context(), requestData)
		if err != nil {
			logRH.Warn("Retrieve request failed", "error:", err)
			writeServiceError(w, err)
			return
		}
		writeJsonResponse(w, http.StatusOK, response)
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// GetStatusHandler godoc
// @Summary      Get ingestion job status
// @Description  Retrieves the current status of a specific ingestion job using its ID.
// @Tags         Ingestion
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobStatusResponse  "The current status of the job"
// @Failure      404  {object}  api.ErrorResponse      "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		//use chi get the url id
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, traceFrom(r.Context()))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToJobStatusResponse(result))
	}
}

// PostIngestHandler handles the uploading of documents for ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  false  "Display name; defaults to the uploaded filename"
// @Param        document       formData  file    true   "The PDF, DOCX, TXT, MD, RTF or ODT file to upload"
// @Success      202  {object}  api.InitJobResponse  "Accepted - returns job_id to poll"
// @Failure      400  {object}  api.ErrorResponse    "Missing file or file too large"
// @Failure      500  {object}  api.ErrorResponse    "Storage or write error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()

		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, errString)
			return
		}

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request")
			return
		}

		//get the document the user uploads
		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		docName := r.FormValue("document_name")
		if docName == "" {
			docName = fileMetadata.Filename
		}
		// the parser keys off the extension, so a bare display name inherits it
		if filepath.Ext(docName) == "" {
			docName += filepath.Ext(fileMetadata.Filename)
		}

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, "Write error")
			return
		}

		newJob := newJobData{
			id:           utils.GetNewUUID(),
			traceId:      traceFrom(r.Context()),
			documentName: docName,
			uploadPath:   tempFilePath,
		}
		CreateNewJob(newJob)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, newJob.traceId))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}
