// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

//go:build integration

package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/duetrooms/duet/internal/store"
	"github.com/duetrooms/duet/internal/store/storetest"
)

var _ = Describe("Migrator", func() {
	var db *storetest.Database

	BeforeEach(func(ctx SpecContext) {
		var err error
		db, err = storetest.StartPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { db.Terminate(context.Background()) })
	})

	It("runs the full up/down cycle", func() {
		migrator, err := store.NewMigrator(db.URL)
		Expect(err).NotTo(HaveOccurred())
		defer migrator.Close()

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeNumerically(">", 0))
		Expect(dirty).To(BeFalse())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())

		Expect(migrator.Down()).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed(), "second Up is a no-op")
	})

	It("enforces username uniqueness in the schema", func(ctx SpecContext) {
		_, err := db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ('a', 'alice', 'x')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx,
			`INSERT INTO users (id, username, password_hash) VALUES ('b', 'alice', 'y')`)
		Expect(err).To(HaveOccurred())
	})
})
