package events

import "time"

// Evento publicado no tópico "draw_result_published" quando um resultado é gravado
type DrawResultPublished struct {
	ProvinceID  string    `json:"province_id"`
	DrawDate    string    `json:"draw_date"`
	Region      string    `json:"region"`
	PublishedAt time.Time `json:"published_at"`
}
