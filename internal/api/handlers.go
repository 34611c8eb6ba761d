package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"divdataset/app"
	"divdataset/domain/core"
	"divdataset/domain/dataset"
	"divdataset/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// maxSplitBodyBytes caps the JSON body of a split request
	maxSplitBodyBytes = 64 << 10
)

// splitRequest mirrors the split body. Pointers tell omitted fields from zero values.
type splitRequest struct {
	TestSize    *float64 `json:"test_size" binding:"omitempty,gte=0.1,lte=0.5"`
	ValSize     *float64 `json:"val_size" binding:"omitempty,gte=0.1,lte=0.5"`
	RandomState *int64   `json:"random_state"`
	Shuffle     *bool    `json:"shuffle"`
	Stratify    *string  `json:"stratify"`
}

func (r splitRequest) params() dataset.SplitParams {
	p := dataset.DefaultSplitParams()
	if r.TestSize != nil {
		p.TestSize = *r.TestSize
	}
	if r.ValSize != nil {
		p.ValSize = *r.ValSize
	}
	if r.RandomState != nil {
		p.RandomState = *r.RandomState
	}
	if r.Shuffle != nil {
		p.Shuffle = *r.Shuffle
	}
	if r.Stratify != nil {
		p.Stratify = strings.TrimSpace(*r.Stratify)
	}
	return p
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "NSL-KDD dataset split API is running",
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	// Leave room for the multipart envelope around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxFileSize+(1<<20))

	fieldErrs := FieldErrors{}
	file, header, err := c.Request.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > s.maxFileSize {
			fieldErrs.Add("file", fmt.Sprintf("File size (%.1f MB) exceeds the %.0f MB limit",
				float64(header.Size)/(1024*1024), float64(s.maxFileSize)/(1024*1024)))
		}
	case isTooLarge(err):
		fieldErrs.Add("file", fmt.Sprintf("Upload exceeds the %.0f MB limit", float64(s.maxFileSize)/(1024*1024)))
	default:
		fieldErrs.Add("file", "No file was submitted.")
	}

	useSample, ok := parseFormBool(c.PostForm("use_sample"))
	if !ok {
		fieldErrs.Add("use_sample", "Must be a valid boolean.")
	}

	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}

	if !app.IsARFF(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .arff files are allowed"})
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(c, errors.ParseError("Error processing dataset", err))
		return
	}

	sess, err := s.service.Upload(c.Request.Context(), app.UploadRequest{
		Filename:  filepath.Base(header.Filename),
		Content:   content,
		UseSample: useSample,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":   sess.ID,
		"dataset_info": sess.DatasetInfo,
		"message":      "Dataset loaded successfully",
	})
}

func (s *Server) handleSplit(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSplitBodyBytes))
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	var fields map[string]json.RawMessage
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &fields); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object"})
			return
		}
	}

	id, err := core.ParseSessionID(sessionIDValue(fields["session_id"]))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	sess, err := s.service.Session(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var req splitRequest
	if fieldErrs := decodeSplitRequest(fields, &req); len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, validationFieldErrors(err))
		return
	}

	outcome, err := s.service.Split(c.Request.Context(), sess, req.params())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleInfo(c *gin.Context) {
	id, ok := s.sessionParam(c)
	if !ok {
		return
	}
	sess, err := s.service.Session(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"dataset_info": sess.DatasetInfo,
		"last_split":   sess.LastSplit,
	})
}

func (s *Server) handleColumns(c *gin.Context) {
	id, ok := s.sessionParam(c)
	if !ok {
		return
	}
	cols, err := s.service.Columns(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cols)
}

func (s *Server) handleExport(c *gin.Context) {
	id, ok := s.sessionParam(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.service.Export(c.Request.Context(), id, &buf); err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_split.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) handleClear(c *gin.Context) {
	id, ok := s.sessionParam(c)
	if !ok {
		return
	}
	if err := s.service.Clear(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session cleared successfully"})
}

func (s *Server) sessionParam(c *gin.Context) (core.SessionID, bool) {
	id, err := core.ParseSessionID(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return "", false
	}
	return id, true
}

// decodeSplitRequest decodes each known field separately so type errors are reported per field
func decodeSplitRequest(fields map[string]json.RawMessage, req *splitRequest) FieldErrors {
	fieldErrs := FieldErrors{}
	decode := func(name string, target interface{}, message string) {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			return
		}
		if err := json.Unmarshal(raw, target); err != nil {
			fieldErrs.Add(name, message)
		}
	}

	decode("test_size", &req.TestSize, "A valid number is required.")
	decode("val_size", &req.ValSize, "A valid number is required.")
	decode("random_state", &req.RandomState, "A valid integer is required.")
	decode("shuffle", &req.Shuffle, "Must be a valid boolean.")
	decode("stratify", &req.Stratify, "Not a valid string.")
	return fieldErrs
}

// validationFieldErrors turns validator errors into field messages
func validationFieldErrors(err error) FieldErrors {
	fieldErrs := FieldErrors{}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		fieldErrs.Add("non_field_errors", err.Error())
		return fieldErrs
	}
	for _, fe := range verrs {
		fieldErrs.Add(fe.Field(), fieldMessage(fe))
	}
	return fieldErrs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "required":
		return "This field is required."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

// sessionIDValue reads session_id as a lookup token. Numbers and true are used by their
// text; null, false, zero and empty values count as absent.
func sessionIDValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		if f, err := val.Float64(); err == nil && f == 0 {
			return ""
		}
		return val.String()
	case bool:
		if val {
			return "True"
		}
		return ""
	case []interface{}:
		if len(val) == 0 {
			return ""
		}
	case map[string]interface{}:
		if len(val) == 0 {
			return ""
		}
	case nil:
		return ""
	}
	return string(bytes.TrimSpace(raw))
}

// parseFormBool accepts the usual form spellings of a boolean; empty means false
func parseFormBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no", "off", "f", "n":
		return false, true
	case "true", "1", "yes", "on", "t", "y":
		return true, true
	default:
		return false, false
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return stderrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
