package tools

import (
	"github.com/carlosGalisteo/catastro-mcp-server/internal/callejero"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/export"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/inspire"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/parcel"
)

// Deps are the collaborators the Catastro tools call into. A nil field
// leaves its tools out of the registry.
type Deps struct {
	Callejero *callejero.Client
	WFS       *inspire.Client
	Parcels   *parcel.Resolver
	Exporter  *export.Exporter
}

func RegisterAll(reg *Registry, d Deps) error {
	var all []Tool
	if d.Callejero != nil {
		all = append(all, callejeroTools(d.Callejero)...)
	}
	if d.WFS != nil {
		all = append(all, wfsTools(d.WFS)...)
	}
	if d.Parcels != nil {
		all = append(all, parcelTools(d.Parcels)...)
	}
	if d.Exporter != nil {
		all = append(all, exportTool(d.Exporter))
	}
	all = append(all, NewHealthTool(func() int { return len(reg.Names()) }))

	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
