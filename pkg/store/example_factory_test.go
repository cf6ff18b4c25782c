package store_test

import (
	"context"
	"fmt"
	"log"

	"github.com/go-training/implicit-oauth/pkg/core"
	"github.com/go-training/implicit-oauth/pkg/store"
)

// Example demonstrates basic usage of the store factory with a vault.
func Example() {
	s, err := store.NewStore(store.MemoryConfig())
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	vault := store.NewVault(s, "example-client")

	if err := vault.Save(ctx, "example-token"); err != nil {
		log.Fatal(err)
	}

	token, ok, err := vault.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(vault.Namespace(), ok, token)
	// Output: access_token:example-client true example-token
}

// Example_memoryStore demonstrates creating a memory store.
func Example_memoryStore() {
	s, err := store.NewStore(store.MemoryConfig())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Store type: %T\n", s)
	// Output: Store type: *store.MemoryStore
}

// Example_parseStoreType demonstrates parsing store types from strings.
func Example_parseStoreType() {
	for _, in := range []string{"memory", "redis", "file", "sqlite", "invalid"} {
		t := store.ParseStoreType(in)
		fmt.Printf("%s: %s (valid: %v)\n", in, t, t.IsValid())
	}

	// Output:
	// memory: memory (valid: true)
	// redis: redis (valid: true)
	// file: file (valid: true)
	// sqlite: sqlite (valid: true)
	// invalid: memory (valid: true)
}

// Example_sealedStore demonstrates encrypting tokens at rest.
func Example_sealedStore() {
	key := make([]byte, store.KeySize)
	s := store.MustCreate(store.Config{
		Type:          store.StoreTypeMemory,
		EncryptionKey: key,
	})

	ctx := context.Background()
	_ = s.SaveAccessToken(ctx, store.NamespaceFor("sealed-client"), "sealed-token")
	token, _ := s.GetAccessToken(ctx, store.NamespaceFor("sealed-client"))

	fmt.Printf("%T %s\n", s, token)
	// Output: *store.SealedStore sealed-token
}

// Example_switchingStores demonstrates code that works with any backend.
func Example_switchingStores() {
	useStore := func(s core.TokenStore) error {
		return s.SaveAccessToken(context.Background(), store.NamespaceFor("test-client"), "tok")
	}

	memStore := store.MustCreate(store.MemoryConfig())
	if err := useStore(memStore); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Memory store: OK")

	sqliteStore := store.MustCreate(store.SQLiteConfig(":memory:"))
	defer store.Close(sqliteStore)
	if err := useStore(sqliteStore); err != nil {
		log.Fatal(err)
	}
	fmt.Println("SQLite store: OK")

	// Output:
	// Memory store: OK
	// SQLite store: OK
}
