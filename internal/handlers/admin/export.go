// handlers/admin/export.go
package admin

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/repositories"
)

// ExportAbsensiHandler writes the attendance recap between ?from and ?to
// (inclusive, YYYY-MM-DD) as an xlsx download.
func ExportAbsensiHandler(db *sql.DB) http.HandlerFunc {
	repo := repositories.NewAbsensiRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		from := r.URL.Query().Get("from")
		to := r.URL.Query().Get("to")
		if from == "" || to == "" {
			response.RespondWithError(w, http.StatusBadRequest, "Parameter from dan to wajib diisi")
			return
		}
		for _, d := range []string{from, to} {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "Format tanggal harus YYYY-MM-DD")
				return
			}
		}

		records, err := repo.ListBetween(r.Context(), from, to)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Database error")
			return
		}

		xlsx, err := buildRecap(records)
		if err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Gagal membuat file Excel")
			return
		}

		filename := fmt.Sprintf("rekap_absensi_%s_%s.xlsx", from, to)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := xlsx.Write(w); err != nil {
			response.RespondWithError(w, http.StatusInternalServerError, "Gagal menulis file Excel")
		}
	}
}

func buildRecap(records []models.Absensi) (*excelize.File, error) {
	xlsx := excelize.NewFile()
	sheet := xlsx.GetSheetName(0)

	headers := []string{"ID Absensi", "ID User", "Waktu Masuk", "Status Masuk", "Waktu Pulang", "Status Pulang", "Lokasi Datang", "Lokasi Pulang", "Wajah Terverifikasi"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := xlsx.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for rowIdx, rec := range records {
		values := []interface{}{
			rec.IDAbsensi,
			rec.IDUser,
			rec.WaktuMasuk.Format("2006-01-02 15:04:05"),
			statusText(rec.StatusMasuk),
			timeText(rec.WaktuPulang),
			statusText(rec.StatusPulang),
			strText(rec.IDLokasiDatang),
			strText(rec.IDLokasiPulang),
			rec.FaceVerifiedMasuk && (rec.WaktuPulang == nil || rec.FaceVerifiedPulang),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := xlsx.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}
	return xlsx, nil
}

func statusText(s *models.StatusAbsensi) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

func timeText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func strText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
