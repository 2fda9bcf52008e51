// handlers/admin/shift_import.go
package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/saraspatika/absensi_backend/internal/pkg/response"
	"github.com/saraspatika/absensi_backend/internal/repositories"
)

type ImportShiftsRequest struct {
	GoogleSheetURL string `json:"google_sheet_url,omitempty"`
}

// ImportShiftsHandler loads shift assignments in bulk, either from a
// Google Sheet or an uploaded xlsx. Expected columns: email, work pattern
// name, date (YYYY-MM-DD). Rows with unknown emails or patterns abort the
// whole import so HR can fix the sheet instead of hunting partial writes.
func ImportShiftsHandler(db *sql.DB) http.HandlerFunc {
	users := repositories.NewUserRepository(db)
	shifts := repositories.NewShiftRepository(db)
	return func(w http.ResponseWriter, r *http.Request) {
		var rows [][]string
		var err error

		contentType := r.Header.Get("Content-Type")
		if strings.Contains(contentType, "application/json") {
			var req ImportShiftsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
				return
			}
			if req.GoogleSheetURL == "" {
				response.RespondWithError(w, http.StatusBadRequest, "google_sheet_url wajib diisi")
				return
			}
			rows, err = readFromGoogleSheet(req.GoogleSheetURL)
			if err != nil {
				response.RespondWithError(w, http.StatusInternalServerError, "Gagal membaca Google Sheets: "+err.Error())
				return
			}
		} else {
			file, _, err := r.FormFile("file")
			if err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "File tidak ditemukan")
				return
			}
			defer file.Close()

			xlsx, err := excelize.OpenReader(file)
			if err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "Format Excel tidak valid")
				return
			}
			sheetList := xlsx.GetSheetList()
			if len(sheetList) == 0 {
				response.RespondWithError(w, http.StatusBadRequest, "Excel kosong")
				return
			}
			rows, err = xlsx.GetRows(sheetList[0])
			if err != nil {
				response.RespondWithError(w, http.StatusInternalServerError, "Gagal membaca sheet")
				return
			}
		}

		if len(rows) < 2 {
			response.RespondWithError(w, http.StatusBadRequest, "File harus berisi header dan minimal satu baris")
			return
		}

		imported, err := importShiftRows(r.Context(), users, shifts, rows[1:])
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		response.Ok(w, http.StatusOK, map[string]interface{}{
			"imported": imported,
		})
	}
}

func importShiftRows(ctx context.Context, users *repositories.UserRepository, shifts *repositories.ShiftRepository, rows [][]string) (int, error) {
	imported := 0
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		email := strings.TrimSpace(row[0])
		polaName := strings.TrimSpace(row[1])
		dateStr := strings.TrimSpace(row[2])
		if email == "" && polaName == "" && dateStr == "" {
			continue
		}

		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return imported, fmt.Errorf("baris %d: format tanggal tidak valid (YYYY-MM-DD): %s", i+2, dateStr)
		}

		userID, err := users.IDByEmail(ctx, email)
		if err != nil {
			return imported, err
		}
		if userID == "" {
			return imported, fmt.Errorf("baris %d: email tidak terdaftar: %s", i+2, email)
		}

		pola, err := shifts.PolaByName(ctx, polaName)
		if err != nil {
			return imported, err
		}
		if pola == nil {
			return imported, fmt.Errorf("baris %d: pola kerja tidak dikenal: %s", i+2, polaName)
		}

		if err := shifts.UpsertForDate(ctx, userID, pola.IDPolaKerja, date); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func readFromGoogleSheet(url string) ([][]string, error) {
	re := regexp.MustCompile(`\/d\/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)
	if len(matches) < 2 {
		return nil, fmt.Errorf("URL Google Sheets tidak valid")
	}
	spreadsheetID := matches[1]

	ctx := context.Background()
	srv, err := sheets.NewService(ctx, option.WithCredentialsFile("credentials.json"))
	if err != nil {
		return nil, fmt.Errorf("gagal inisialisasi Google API: %w", err)
	}

	resp, err := srv.Spreadsheets.Values.Get(spreadsheetID, "A1:C1000").Do()
	if err != nil {
		return nil, fmt.Errorf("gagal membaca spreadsheet: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("spreadsheet kosong")
	}

	var rows [][]string
	for _, row := range resp.Values {
		var strRow []string
		for _, cell := range row {
			strRow = append(strRow, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, strRow)
	}
	return rows, nil
}
