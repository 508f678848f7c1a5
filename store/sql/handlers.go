package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func appInstanceHandlers() repository.ModelHandlers[*appInstanceRecord] {
	return repository.ModelHandlers[*appInstanceRecord]{
		NewRecord: func() *appInstanceRecord {
			return &appInstanceRecord{}
		},
		GetID: func(record *appInstanceRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *appInstanceRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *appInstanceRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func apiTokenHandlers() repository.ModelHandlers[*apiTokenRecord] {
	return repository.ModelHandlers[*apiTokenRecord]{
		NewRecord: func() *apiTokenRecord {
			return &apiTokenRecord{}
		},
		GetID: func(record *apiTokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *apiTokenRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *apiTokenRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func cachedTokenHandlers() repository.ModelHandlers[*cachedTokenRecord] {
	return repository.ModelHandlers[*cachedTokenRecord]{
		NewRecord: func() *cachedTokenRecord {
			return &cachedTokenRecord{}
		},
		GetID: func(record *cachedTokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *cachedTokenRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *cachedTokenRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func accessRequestHandlers() repository.ModelHandlers[*accessRequestRecord] {
	return repository.ModelHandlers[*accessRequestRecord]{
		NewRecord: func() *accessRequestRecord {
			return &accessRequestRecord{}
		},
		GetID: func(record *accessRequestRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *accessRequestRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *accessRequestRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func authSessionHandlers() repository.ModelHandlers[*authSessionRecord] {
	return repository.ModelHandlers[*authSessionRecord]{
		NewRecord: func() *authSessionRecord {
			return &authSessionRecord{}
		},
		GetID: func(record *authSessionRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *authSessionRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *authSessionRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
