package models

import "time"

// StatusAbsensi is the lateness verdict for one attendance leg.
type StatusAbsensi string

const (
	StatusTepat     StatusAbsensi = "TEPAT"
	StatusTerlambat StatusAbsensi = "TERLAMBAT"
)

// Absensi is one attendance record: a check-in and an optional check-out.
// CorrelationID is the client-generated idempotency key; the database
// enforces its uniqueness.
type Absensi struct {
	IDAbsensi     string  `json:"id_absensi"`
	IDUser        string  `json:"id_user"`
	IDJadwalShift *string `json:"id_jadwal_shift,omitempty"`
	CorrelationID *string `json:"correlation_id,omitempty"`

	IDLokasiDatang *string `json:"id_lokasi_datang,omitempty"`
	IDLokasiPulang *string `json:"id_lokasi_pulang,omitempty"`

	WaktuMasuk  time.Time  `json:"waktu_masuk"`
	WaktuPulang *time.Time `json:"waktu_pulang,omitempty"`

	FaceVerifiedMasuk  bool `json:"face_verified_masuk"`
	FaceVerifiedPulang bool `json:"face_verified_pulang"`

	StatusMasuk  *StatusAbsensi `json:"status_masuk,omitempty"`
	StatusPulang *StatusAbsensi `json:"status_pulang,omitempty"`

	InLatitude   *float64 `json:"in_latitude,omitempty"`
	InLongitude  *float64 `json:"in_longitude,omitempty"`
	OutLatitude  *float64 `json:"out_latitude,omitempty"`
	OutLongitude *float64 `json:"out_longitude,omitempty"`
}
