// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/duetrooms/duet/internal/auth"
	authpg "github.com/duetrooms/duet/internal/auth/postgres"
	"github.com/duetrooms/duet/internal/room"
	"github.com/duetrooms/duet/internal/room/postgres"
)

var _ = Describe("ConnectionManager on PostgreSQL", func() {
	var (
		users   *authpg.UserRepository
		manager *room.ConnectionManager
	)

	BeforeEach(func(ctx SpecContext) {
		Expect(testDB.Reset(ctx)).To(Succeed())
		users = authpg.NewUserRepository(testDB.Pool)
		var err error
		manager, err = room.NewConnectionManager(postgres.NewStore(testDB.Pool), room.WithMaxOccupants(2))
		Expect(err).NotTo(HaveOccurred())
	})

	register := func(ctx context.Context, name string) *auth.User {
		u, err := auth.NewUser(name, "$argon2id$stub")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, u)).To(Succeed())
		return u
	}

	It("rejects a duplicate username through the unique index", func(ctx SpecContext) {
		register(ctx, "alice")
		dup, err := auth.NewUser("alice", "$argon2id$other")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(ctx, dup)).To(MatchError(auth.ErrUsernameTaken))
	})

	It("pairs two users through a private room", func(ctx SpecContext) {
		alice := register(ctx, "alice")
		bob := register(ctx, "bob")

		created, err := manager.Create(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(created.ConnectKey).To(Equal(room.DefaultConnectionKey(created.RoomID)))

		joined, err := manager.Connect(ctx, bob.ID, created.ConnectKey)
		Expect(err).NotTo(HaveOccurred())
		Expect(joined).To(Equal(created))

		stored, err := users.GetByID(ctx, bob.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.ConnectedRoomID).To(HaveValue(Equal(created.RoomID)))
	})

	It("leaves no orphan room when the user is already connected", func(ctx SpecContext) {
		alice := register(ctx, "alice")
		_, err := manager.Create(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())

		_, err = manager.Create(ctx, alice.ID)
		Expect(err).To(MatchError(room.ErrAlreadyConnected))

		var rooms int
		Expect(testDB.Pool.QueryRow(ctx, `SELECT count(*) FROM rooms`).Scan(&rooms)).To(Succeed())
		Expect(rooms).To(Equal(1))
	})

	It("admits exactly one guest under concurrent connects", func(ctx SpecContext) {
		owner := register(ctx, "owner")
		created, err := manager.Create(ctx, owner.ID)
		Expect(err).NotTo(HaveOccurred())

		guests := make([]*auth.User, 8)
		for i := range guests {
			guests[i] = register(ctx, "guest"+string(rune('a'+i)))
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			ok   int
			full int
		)
		for _, g := range guests {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := manager.Connect(ctx, g.ID, created.ConnectKey)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, room.ErrRoomFull):
					full++
				default:
					Fail(err.Error())
				}
			}()
		}
		wg.Wait()

		Expect(ok).To(Equal(1))
		Expect(full).To(Equal(len(guests) - 1))
	})
})
