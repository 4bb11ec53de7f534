package handlers

import (
	"net/http"
	"strconv"

	"deskrag/internal/adapter/utils"
	"deskrag/internal/api"
	"deskrag/internal/config"
	"deskrag/internal/data/store"
)

// ListDocumentsHandler godoc
// @Summary      List indexed documents
// @Description  Returns every ingested document with its metadata and chunk count.
// @Tags         Documents
// @Produce      json
// @Success      200  {array}   store.DocumentInfo
// @Failure      500  {object}  api.ErrorResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		docs, err := handlerInstance.docStore.ListDocuments(r.Context())
		if err != nil {
			logRH.Error("Listing documents failed", "err", err)
			writeServiceError(w, err)
			return
		}
		if docs == nil {
			docs = []store.DocumentInfo{}
		}
		writeJsonResponse(w, http.StatusOK, docs)
	}
}

// ListChunksHandler godoc
// @Summary      Inspect a document's chunks
// @Description  Returns the stored chunks for one document, ordered by page then chunk index. Supports page and limit query params.
// @Tags         Documents
// @Produce      json
// @Param        id     path      string  true   "Document ID"
// @Param        page   query     int     false  "Restrict to one page number"
// @Param        limit  query     int     false  "Maximum chunks to return"
// @Success      200  {array}   docmodel.Chunk
// @Failure      404  {object}  api.ErrorResponse  "Document not found"
// @Router       /documents/{id}/chunks [get]
func ListChunksHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		docID := utils.GetChiURLParam(r, "id")

		_, found, err := handlerInstance.docStore.GetDocument(r.Context(), docID)
		if err != nil {
			logRH.Error("Looking up document failed", "docId", docID, "err", err)
			writeServiceError(w, err)
			return
		}
		if !found {
			WriteErrorResponse(w, http.StatusNotFound, "Document not found")
			return
		}

		var page *int
		if raw := r.URL.Query().Get("page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				WriteErrorResponse(w, http.StatusBadRequest, "page must be an integer")
				return
			}
			page = &n
		}
		limit := config.MaxMessageLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				WriteErrorResponse(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = n
		}

		chunks, err := handlerInstance.docStore.ListChunks(r.Context(), docID, page, limit)
		if err != nil {
			logRH.Error("Listing chunks failed", "docId", docID, "err", err)
			writeServiceError(w, err)
			return
		}
		writeJsonResponse(w, http.StatusOK, chunks)
	}
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes a document's vectors first, then its rows. Fails without touching rows when the vector index is down.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DeleteDocumentResponse
// @Failure      404  {object}  api.ErrorResponse  "Document not found"
// @Failure      503  {object}  api.ErrorResponse  "Vector index unavailable"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		docID := utils.GetChiURLParam(r, "id")

		if err := handlerInstance.ragService.RemoveDocument(r.Context(), docID); err != nil {
			logRH.Warn("Deleting document failed", "docId", docID, "err", err)
			writeServiceError(w, err)
			return
		}
		writeJsonResponse(w, http.StatusOK, api.DeleteDocumentResponse{Deleted: true, DocId: docID})
	}
}
