// Package domain holds the typed identifiers shared by every aggregate in
// the engine. Wrapping uuid.UUID keeps an ObservacionID from being passed
// where a PostulacionID is expected.
package domain

import "github.com/google/uuid"

type (
	UserID         uuid.UUID
	ConvocatoriaID uuid.UUID
	PostulacionID  uuid.UUID
	DocumentoID    uuid.UUID
	ObservacionID  uuid.UUID
	RendicionID    uuid.UUID
	ExencionID     uuid.UUID
	InscripcionID  uuid.UUID
)

func NewUserID() UserID                 { return UserID(uuid.New()) }
func NewConvocatoriaID() ConvocatoriaID { return ConvocatoriaID(uuid.New()) }
func NewPostulacionID() PostulacionID   { return PostulacionID(uuid.New()) }
func NewDocumentoID() DocumentoID       { return DocumentoID(uuid.New()) }
func NewObservacionID() ObservacionID   { return ObservacionID(uuid.New()) }
func NewRendicionID() RendicionID       { return RendicionID(uuid.New()) }
func NewExencionID() ExencionID         { return ExencionID(uuid.New()) }
func NewInscripcionID() InscripcionID   { return InscripcionID(uuid.New()) }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ConvocatoriaID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PostulacionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id DocumentoID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ObservacionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id RendicionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ExencionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id InscripcionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ConvocatoriaID) String() string { return uuid.UUID(id).String() }
func (id PostulacionID) String() string  { return uuid.UUID(id).String() }
func (id DocumentoID) String() string    { return uuid.UUID(id).String() }
func (id ObservacionID) String() string  { return uuid.UUID(id).String() }
func (id RendicionID) String() string    { return uuid.UUID(id).String() }
func (id ExencionID) String() string     { return uuid.UUID(id).String() }
func (id InscripcionID) String() string  { return uuid.UUID(id).String() }
