package dto

import (
	"stocktake/internal/domain/catalogs/location"
)

// --- Request DTOs ---

// CreateLocationRequest is the request body for creating a location.
type CreateLocationRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateLocationRequest) ToEntity() *location.Location {
	l := location.NewLocation(r.Code, r.Name)
	l.Description = r.Description
	if r.IsActive != nil {
		l.IsActive = *r.IsActive
	}
	return l
}

// UpdateLocationRequest is the request body for updating a location.
type UpdateLocationRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description,omitempty"`
	IsActive    bool    `json:"isActive"`
	Version     int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateLocationRequest) ApplyTo(l *location.Location) {
	if r.Code != "" {
		l.Code = r.Code
	}
	l.Name = r.Name
	l.Description = r.Description
	l.IsActive = r.IsActive
	l.Version = r.Version
}

// --- Response DTOs ---

// LocationResponse is the response body for a location.
type LocationResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	IsActive     bool    `json:"isActive"`
	DeletionMark bool    `json:"deletionMark"`
	Version      int     `json:"version"`
}

// FromLocation creates response DTO from domain entity.
func FromLocation(l *location.Location) *LocationResponse {
	return &LocationResponse{
		ID:           l.ID.String(),
		Code:         l.Code,
		Name:         l.Name,
		Description:  l.Description,
		IsActive:     l.IsActive,
		DeletionMark: l.DeletionMark,
		Version:      l.Version,
	}
}
