package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mindsetu-api/internal/dto"
	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/service"
	appErrors "github.com/noah-isme/mindsetu-api/pkg/errors"
)

type reportServiceMock struct {
	createResp  *dto.ReportJobResponse
	createErr   error
	lastRequest dto.ReportRequest
	listResp    []dto.ReportStatusResponse
	statusResp  *dto.ReportStatusResponse
	statusErr   error
	download    *service.ReportDownload
	downloadErr error
}

func (m *reportServiceMock) CreateJob(_ context.Context, _ *models.JWTClaims, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	m.lastRequest = req
	return m.createResp, m.createErr
}

func (m *reportServiceMock) List(context.Context, *models.JWTClaims) ([]dto.ReportStatusResponse, error) {
	return m.listResp, nil
}

func (m *reportServiceMock) GetStatus(context.Context, *models.JWTClaims, string) (*dto.ReportStatusResponse, error) {
	return m.statusResp, m.statusErr
}

func (m *reportServiceMock) ResolveDownload(context.Context, string) (*service.ReportDownload, error) {
	return m.download, m.downloadErr
}

func TestReportHandlerGenerateReport(t *testing.T) {
	mockSvc := &reportServiceMock{
		createResp: &dto.ReportJobResponse{ID: "job-1", Status: models.ReportStatusQueued, Progress: 0},
	}
	handler := NewReportHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ReportRequest{Type: models.ReportTypeWellbeing, Format: models.ReportFormatPDF})
	c, w := newGinContext(http.MethodPost, "/reports", payload)
	withUser(c, adminClaims())

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, models.ReportFormatPDF, mockSvc.lastRequest.Format)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"id":"job-1"`)
}

func TestReportHandlerGenerateReportWithoutBody(t *testing.T) {
	mockSvc := &reportServiceMock{createResp: &dto.ReportJobResponse{ID: "job-2", Status: models.ReportStatusQueued}}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodPost, "/reports", nil)
	withUser(c, adminClaims())

	handler.GenerateReport(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, dto.ReportRequest{}, mockSvc.lastRequest)
}

func TestReportHandlerGenerateReportForbidden(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{
		createErr: appErrors.Clone(appErrors.ErrForbidden, "Unauthorized: Only Admins can request reports."),
	}, nil)

	c, w := newGinContext(http.MethodPost, "/reports", []byte(`{}`))
	withUser(c, studentClaims())

	handler.GenerateReport(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerReportStatus(t *testing.T) {
	mockSvc := &reportServiceMock{
		statusResp: &dto.ReportStatusResponse{ID: jobID, Status: models.ReportStatusFinished, Progress: 100},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/"+jobID, nil)
	c.Params = gin.Params{{Key: "id", Value: jobID}}
	withUser(c, adminClaims())

	handler.ReportStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerListReports(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{
		listResp: []dto.ReportStatusResponse{{ID: "job-1"}, {ID: "job-2"}},
	}, nil)

	c, w := newGinContext(http.MethodGet, "/reports", nil)
	withUser(c, adminClaims())

	handler.ListReports(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), "job-2")
}

func TestReportHandlerDownloadReport(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "report*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("Student,Email\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{
		download: &service.ReportDownload{
			File:        file,
			Filename:    "wellbeing_greenwood_high.csv",
			Format:      models.ReportFormatCSV,
			ContentType: "text/csv",
			ExpiresAt:   time.Now().Add(time.Hour),
		},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.DownloadReport(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="wellbeing_greenwood_high.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student,Email\n", w.Body.String())
}

func TestReportHandlerDownloadRejectsBadToken(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{
		downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token"),
	}, nil)

	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	handler.DownloadReport(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportHandlerReportStatusMalformedID(t *testing.T) {
	handler := NewReportHandler(&reportServiceMock{statusErr: appErrors.ErrInternal}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/not-a-uuid", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	withUser(c, adminClaims())
	handler.ReportStatus(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
