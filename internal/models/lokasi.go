package models

type Lokasi struct {
	IDLokasi   string  `json:"id_lokasi"`
	NamaLokasi string  `json:"nama_lokasi"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Radius     int     `json:"radius"`
}
