package service

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

//go:embed schema/timetable.schema.json
var timetableSchemaSource string

var (
	// ErrClassRequired indicates a timetable operation without a class name.
	ErrClassRequired = errors.New("class name is required")
	// ErrCellEmpty indicates a clear on a cell that holds no assignment.
	ErrCellEmpty = errors.New("cell holds no assignment")
	// ErrInvalidSlotTime indicates a slot that does not end after it starts.
	ErrInvalidSlotTime = errors.New("slot must end after it starts")
	// ErrInvalidTimetable indicates a replace payload that failed validation.
	ErrInvalidTimetable = errors.New("invalid timetable document")
)

// TimetableService edits and renders per-class timetables. Every edit loads the
// class document, changes it in memory and writes the whole document back.
type TimetableService interface {
	Get(ctx context.Context, className string, editable bool) (dto.TimetableResponse, error)
	ListPage(ctx context.Context, page int) (dto.TimetablePageResponse, error)
	AddSlot(ctx context.Context, className string, req dto.SlotRequest, actor Actor) (dto.TimetableResponse, error)
	RemoveSlot(ctx context.Context, className, label string, actor Actor) (dto.TimetableResponse, error)
	AssignCell(ctx context.Context, className string, req dto.CellRequest, actor Actor) (dto.TimetableResponse, error)
	ClearCell(ctx context.Context, className, day, slot string, actor Actor) (dto.TimetableResponse, error)
	Replace(ctx context.Context, className string, payload []byte, actor Actor) (dto.TimetableResponse, error)
}

type timetableService struct {
	repo         repository.TimetableRepository
	validator    *validator.Validate
	activity     ActivityRecorder
	logger       zerolog.Logger
	tracer       trace.Tracer
	classesPage  int
	schemaOnce   sync.Once
	schema       *jsonschema.Schema
	schemaErr    error
}

// NewTimetableService constructs the timetable service. classesPerPage bounds
// the read-only listing.
func NewTimetableService(repo repository.TimetableRepository, validate *validator.Validate, activity ActivityRecorder, classesPerPage int, logger zerolog.Logger) TimetableService {
	if classesPerPage <= 0 {
		classesPerPage = 4
	}
	return &timetableService{
		repo:        repo,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "timetable_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/school-portal-api/internal/service/timetable"),
		classesPage: classesPerPage,
	}
}

// Get returns the class timetable, or an empty one when none was saved yet.
func (s *timetableService) Get(ctx context.Context, className string, editable bool) (dto.TimetableResponse, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return dto.TimetableResponse{}, ErrClassRequired
	}

	record, found, err := s.load(ctx, className)
	if err != nil {
		return dto.TimetableResponse{}, err
	}
	if !found {
		return dto.NewTimetableResponse(className, nil, editable), nil
	}
	return dto.NewTimetableResponse(className, &record, editable), nil
}

func (s *timetableService) ListPage(ctx context.Context, page int) (dto.TimetablePageResponse, error) {
	if page <= 0 {
		page = 1
	}
	records, total, err := s.repo.ListPage(ctx, page, s.classesPage)
	if err != nil {
		return dto.TimetablePageResponse{}, err
	}

	items := make([]dto.TimetableResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.NewTimetableResponse(records[i].ClassName, &records[i], false))
	}

	totalPages := int((total + int64(s.classesPage) - 1) / int64(s.classesPage))
	if totalPages == 0 {
		totalPages = 1
	}
	return dto.TimetablePageResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   s.classesPage,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}

func (s *timetableService) AddSlot(ctx context.Context, className string, req dto.SlotRequest, actor Actor) (dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TimetableResponse{}, err
	}
	if req.End <= req.Start {
		return dto.TimetableResponse{}, ErrInvalidSlotTime
	}

	return s.edit(ctx, className, actor, "timetable.add_slot", func(doc *models.TimetableDocument) error {
		label := strings.TrimSpace(req.Label)
		if _, exists := doc.Slot(label); exists {
			return fmt.Errorf("%w: %s", models.ErrDuplicateSlot, label)
		}
		doc.Slots = append(doc.Slots, models.TimeSlot{
			Label:   label,
			Start:   req.Start,
			End:     req.End,
			IsBreak: req.IsBreak,
		})
		return nil
	})
}

// RemoveSlot drops the slot and its cells on every day.
func (s *timetableService) RemoveSlot(ctx context.Context, className, label string, actor Actor) (dto.TimetableResponse, error) {
	return s.edit(ctx, className, actor, "timetable.remove_slot", func(doc *models.TimetableDocument) error {
		index := -1
		for i, slot := range doc.Slots {
			if slot.Label == label {
				index = i
				break
			}
		}
		if index < 0 {
			return fmt.Errorf("%w: %s", models.ErrUnknownSlot, label)
		}
		doc.Slots = append(doc.Slots[:index], doc.Slots[index+1:]...)
		for day, cells := range doc.Schedule {
			delete(cells, label)
			if len(cells) == 0 {
				delete(doc.Schedule, day)
			}
		}
		return nil
	})
}

// AssignCell sets one (day, slot) cell. Break slots are rejected before any write.
func (s *timetableService) AssignCell(ctx context.Context, className string, req dto.CellRequest, actor Actor) (dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TimetableResponse{}, err
	}

	return s.edit(ctx, className, actor, "timetable.assign_cell", func(doc *models.TimetableDocument) error {
		if err := editableCell(*doc, req.Day, req.Slot); err != nil {
			return err
		}
		if doc.Schedule[req.Day] == nil {
			doc.Schedule[req.Day] = map[string]models.SlotAssignment{}
		}
		doc.Schedule[req.Day][req.Slot] = models.SlotAssignment{
			Subject: strings.TrimSpace(req.Subject),
			Teacher: strings.TrimSpace(req.Teacher),
		}
		return nil
	})
}

func (s *timetableService) ClearCell(ctx context.Context, className, day, slot string, actor Actor) (dto.TimetableResponse, error) {
	return s.edit(ctx, className, actor, "timetable.clear_cell", func(doc *models.TimetableDocument) error {
		if err := editableCell(*doc, day, slot); err != nil {
			return err
		}
		cells := doc.Schedule[day]
		if _, ok := cells[slot]; !ok {
			return ErrCellEmpty
		}
		delete(cells, slot)
		if len(cells) == 0 {
			delete(doc.Schedule, day)
		}
		return nil
	})
}

// Replace overwrites the class document with payload after schema and rule
// validation. It never merges with what is stored.
func (s *timetableService) Replace(ctx context.Context, className string, payload []byte, actor Actor) (dto.TimetableResponse, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return dto.TimetableResponse{}, ErrClassRequired
	}

	doc, err := s.decode(payload)
	if err != nil {
		return dto.TimetableResponse{}, err
	}
	if err := doc.Validate(); err != nil {
		return dto.TimetableResponse{}, err
	}

	record, err := s.save(ctx, className, doc, actor, "timetable.replace")
	if err != nil {
		return dto.TimetableResponse{}, err
	}
	return dto.NewTimetableResponse(className, &record, true), nil
}

func (s *timetableService) edit(ctx context.Context, className string, actor Actor, action string, mutate func(doc *models.TimetableDocument) error) (dto.TimetableResponse, error) {
	className = strings.TrimSpace(className)
	if className == "" {
		return dto.TimetableResponse{}, ErrClassRequired
	}

	record, _, err := s.load(ctx, className)
	if err != nil {
		return dto.TimetableResponse{}, err
	}

	doc := record.Document.Data().Clone()
	if doc.Schedule == nil {
		doc.Schedule = map[string]map[string]models.SlotAssignment{}
	}
	if err := mutate(&doc); err != nil {
		return dto.TimetableResponse{}, err
	}
	if err := doc.Validate(); err != nil {
		return dto.TimetableResponse{}, err
	}

	saved, err := s.save(ctx, className, doc, actor, action)
	if err != nil {
		return dto.TimetableResponse{}, err
	}
	return dto.NewTimetableResponse(className, &saved, true), nil
}

func (s *timetableService) save(ctx context.Context, className string, doc models.TimetableDocument, actor Actor, action string) (models.Timetable, error) {
	ctx, span := s.tracer.Start(ctx, "timetable.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("timetable.class", className),
		attribute.String("timetable.action", action),
		attribute.Int("timetable.slots", len(doc.Slots)),
	)

	record := models.Timetable{
		ClassName: className,
		Document:  datatypes.NewJSONType(doc),
		UpdatedBy: actor.ID,
	}
	if err := s.repo.Replace(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
		return models.Timetable{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "timetable",
		EntityID:   className,
	})
	return record, nil
}

func (s *timetableService) load(ctx context.Context, className string) (models.Timetable, bool, error) {
	record, err := s.repo.Get(ctx, className)
	if err != nil {
		if isNotFound(err) {
			return models.Timetable{ClassName: className}, false, nil
		}
		return models.Timetable{}, false, err
	}
	return record, true, nil
}

func (s *timetableService) decode(payload []byte) (models.TimetableDocument, error) {
	schema, err := s.compiledSchema()
	if err != nil {
		return models.TimetableDocument{}, err
	}

	var raw interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.TimetableDocument{}, fmt.Errorf("%w: %v", ErrInvalidTimetable, err)
	}
	if err := schema.Validate(raw); err != nil {
		return models.TimetableDocument{}, fmt.Errorf("%w: %v", ErrInvalidTimetable, err)
	}

	var doc models.TimetableDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return models.TimetableDocument{}, fmt.Errorf("%w: %v", ErrInvalidTimetable, err)
	}
	if doc.Schedule == nil {
		doc.Schedule = map[string]map[string]models.SlotAssignment{}
	}
	return doc, nil
}

func (s *timetableService) compiledSchema() (*jsonschema.Schema, error) {
	s.schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("timetable.schema.json", bytes.NewReader([]byte(timetableSchemaSource))); err != nil {
			s.schemaErr = err
			return
		}
		s.schema, s.schemaErr = compiler.Compile("timetable.schema.json")
	})
	return s.schema, s.schemaErr
}

func editableCell(doc models.TimetableDocument, day, label string) error {
	if !models.IsWeekday(day) {
		return fmt.Errorf("%w: %s", models.ErrUnknownDay, day)
	}
	slot, ok := doc.Slot(label)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownSlot, label)
	}
	if slot.IsBreak {
		return fmt.Errorf("%w: %s", models.ErrBreakSlot, label)
	}
	return nil
}
