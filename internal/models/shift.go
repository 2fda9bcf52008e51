package models

import "time"

// PolaJamKerja is a named work pattern. Start/end times are clock strings
// in "15:04:05" form, matching the TIME columns they come from.
type PolaJamKerja struct {
	IDPolaKerja     string `json:"id_pola_kerja"`
	NamaPolaKerja   string `json:"nama_pola_kerja"`
	JamMulaiKerja   string `json:"jam_mulai_kerja"`
	JamSelesaiKerja string `json:"jam_selesai_kerja"`
}

// JadwalShift assigns a work pattern to a user for one calendar date.
type JadwalShift struct {
	IDJadwalShift string        `json:"id_jadwal_shift"`
	IDUser        string        `json:"id_user"`
	IDPolaKerja   string        `json:"id_pola_kerja"`
	Tanggal       time.Time     `json:"tanggal"`
	Pola          *PolaJamKerja `json:"pola_jam_kerja,omitempty"`
}
