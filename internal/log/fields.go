package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldFamilyID     = "family_id"
	FieldActorID      = "actor_id"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldObligationID = "obligation_id"
	FieldEntryID      = "entry_id"
	FieldGoalID       = "goal_id"
	FieldPeriod       = "period"
	FieldKind         = "kind"
	FieldFrequency    = "frequency"
	FieldAmountCents  = "amount_cents"
	FieldCategory     = "category"
	FieldAlertKind    = "alert_kind"
	FieldAlertKey     = "alert_key"
	FieldCollection   = "collection"
	FieldRoutingKey   = "routing_key"
	FieldDuration     = "duration_ms"
	FieldCount        = "count"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentCache        = "cache"
	ComponentBackend      = "backend"
	ComponentReconciler   = "reconciler"
	ComponentGoals        = "goals"
	ComponentNotification = "notification"
	ComponentLedger       = "ledger"
	ComponentObligations  = "obligations"
	ComponentSettings     = "settings"
	ComponentCLI          = "cli"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpReconcile = "reconcile"
	OpMigrate   = "migrate"
	OpEvaluate  = "evaluate"
	OpPublish   = "publish"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithFamily adds family id field
func (f LogFields) WithFamily(familyID string) LogFields {
	f[FieldFamilyID] = familyID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithObligation adds obligation-related fields
func (f LogFields) WithObligation(id string, frequency string, period string) LogFields {
	f[FieldObligationID] = id
	f[FieldFrequency] = frequency
	if period != "" {
		f[FieldPeriod] = period
	}
	return f
}

// WithEntry adds ledger entry fields
func (f LogFields) WithEntry(id string, kind string, amountCents int64, category string) LogFields {
	f[FieldEntryID] = id
	f[FieldKind] = kind
	f[FieldAmountCents] = amountCents
	if category != "" {
		f[FieldCategory] = category
	}
	return f
}

// WithAlert adds alert fields
func (f LogFields) WithAlert(kind, key string) LogFields {
	f[FieldAlertKind] = kind
	f[FieldAlertKey] = key
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
