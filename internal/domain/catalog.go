package domain

import (
	"github.com/google/uuid"
)

// Book is the minimal catalog entry a copy belongs to.
type Book struct {
	ID     uuid.UUID `json:"id" db:"id"`
	Title  string    `json:"titulo" db:"titulo"`
	Author string    `json:"autor" db:"autor"`
}

// Copy is one physical instance of a book.
type Copy struct {
	ID     uuid.UUID `json:"id" db:"id"`
	BookID uuid.UUID `json:"id_livro" db:"livro_id"`
	Number int       `json:"num_exemplar" db:"num_exemplar"`
}

// CopyBookSummary is the book projection shown alongside a copy.
type CopyBookSummary struct {
	Title string `json:"titulo" db:"titulo"`
}

// CopyAvailability is a copy with its derived loanability.
type CopyAvailability struct {
	Copy
	Book      CopyBookSummary `json:"livro" db:"livro"`
	Available bool            `json:"disponivel" db:"disponivel"`
}

// AvailabilityResponse answers whether one copy can be lent.
type AvailabilityResponse struct {
	CopyID    uuid.UUID `json:"exemplarId"`
	Available bool      `json:"disponivel"`
}

// DTOs for requests

type CreateBookRequest struct {
	Title  string `json:"titulo" validate:"required,max=255"`
	Author string `json:"autor" validate:"required,max=255"`
}

type CreateCopyRequest struct {
	BookID string `json:"id_livro" validate:"required,uuid"`
	Number int    `json:"num_exemplar" validate:"required,gt=0"`
}

type UpdateCopyRequest struct {
	Number int `json:"num_exemplar" validate:"required,gt=0"`
}
