package handlers

import (
	"stocktake/internal/domain/catalogs/material"
	"stocktake/internal/infrastructure/http/v1/dto"
)

// MaterialHTTPHandler serves the material catalog routes.
type MaterialHTTPHandler = CatalogHandler[
	*material.Material,
	dto.CreateMaterialRequest,
	dto.UpdateMaterialRequest,
]

// NewMaterialHandler creates the material catalog handler.
func NewMaterialHandler(
	base *BaseHandler,
	service *material.Service,
) *MaterialHTTPHandler {

	config := CatalogHandlerConfig[
		*material.Material,
		dto.CreateMaterialRequest,
		dto.UpdateMaterialRequest,
	]{
		Service:    service,
		EntityName: "material",

		MapCreateDTO: func(req dto.CreateMaterialRequest) *material.Material {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateMaterialRequest, existing *material.Material) *material.Material {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(m *material.Material) any {
			return dto.FromMaterial(m)
		},
	}

	return NewCatalogHandler(base, config)
}
