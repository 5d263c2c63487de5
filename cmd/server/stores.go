package main

import (
	"fmt"

	"supplierhub/internal/contact/ports"
	contactStore "supplierhub/internal/contact/store/contact"
	"supplierhub/internal/contact/store/directory"
	"supplierhub/internal/platform/config"
	quotasvc "supplierhub/internal/ratelimit/service/quota"
	quotaStore "supplierhub/internal/ratelimit/store/quota"
	audit "supplierhub/pkg/platform/audit"
	auditmemory "supplierhub/pkg/platform/audit/store/memory"
	auditpg "supplierhub/pkg/platform/audit/store/postgres"
	"supplierhub/pkg/platform/fieldcrypt"
	"supplierhub/pkg/platform/tx"
)

// stores is the persistence set for one deployment: Postgres when a database
// is configured, otherwise process-local memory.
type stores struct {
	kind      string
	contacts  ports.ContactStore
	companies ports.CompanyStore
	users     ports.UserStore
	quotas    quotasvc.Store
	limits    quotasvc.LimitResolver
	audit     audit.Store
	// outbox is nil in memory mode, which disables the relay.
	outbox *auditpg.Store
	tx     tx.Manager
}

func buildStores(cfg config.Config, in *infra) (*stores, error) {
	cipher, err := fieldcrypt.New(cfg.Contact.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("build field cipher: %w", err)
	}

	if in.db == nil {
		in.log.Warn("DATABASE_URL not set, using in-memory stores")
		dir := directory.NewInMemoryStore()
		quotas := quotaStore.New()
		return &stores{
			kind:      "memory",
			contacts:  contactStore.NewInMemoryStore(cipher),
			companies: dir,
			users:     dir.Users(),
			quotas:    quotas,
			limits:    quotas,
			audit:     auditmemory.NewInMemoryStore(),
			tx:        tx.NewMemoryManager(),
		}, nil
	}

	quotas := quotaStore.NewPostgres(in.db)
	auditStore := auditpg.New(in.db)
	return &stores{
		kind:      "postgres",
		contacts:  contactStore.NewPostgres(in.db, cipher),
		companies: directory.NewPostgresCompanies(in.db),
		users:     directory.NewPostgresUsers(in.db),
		quotas:    quotas,
		limits:    quotas,
		audit:     auditStore,
		outbox:    auditStore,
		tx:        tx.NewPostgresManager(in.db),
	}, nil
}
