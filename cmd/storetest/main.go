package main

import (
	"fmt"
	"log"

	"github.com/kittclouds/gofeat/internal/store"
)

func main() {
	fmt.Println("Testing MemStore...")
	exercise(store.NewMemStore())

	fmt.Println("\nTesting SQLiteStore...")
	s, err := store.NewSQLiteStore()
	if err != nil {
		log.Fatalf("NewSQLiteStore failed: %v", err)
	}
	exercise(s)

	fmt.Println("\n✅ All tests passed!")
}

func exercise(s store.Storer) {
	defer s.Close()

	// Test Entry CRUD
	entry := &store.Entry{
		ID:        "dog|[*type*='N', num='sg']",
		Word:      "dog",
		Category:  "[*type*='N', num='sg']",
		CreatedAt: 1234567890,
		UpdatedAt: 1234567890,
	}

	if err := s.UpsertEntry(entry); err != nil {
		log.Fatalf("UpsertEntry failed: %v", err)
	}
	fmt.Println("  ✓ UpsertEntry works")

	retrieved, err := s.GetEntry(entry.ID)
	if err != nil {
		log.Fatalf("GetEntry failed: %v", err)
	}
	if retrieved == nil {
		log.Fatal("GetEntry returned nil")
	}
	fmt.Println("  ✓ GetEntry works")

	count, err := s.CountEntries()
	if err != nil {
		log.Fatalf("CountEntries failed: %v", err)
	}
	if count != 1 {
		log.Fatalf("CountEntries expected 1, got %d", count)
	}
	fmt.Println("  ✓ CountEntries works")

	// Test grammar versioning
	if err := s.CreateGrammar(&store.Grammar{ID: "g", Text: "S -> NP VP"}); err != nil {
		log.Fatalf("CreateGrammar failed: %v", err)
	}
	if err := s.UpdateGrammar(&store.Grammar{ID: "g", Text: "S -> NP[num=?n] VP[num=?n]"}, "agreement"); err != nil {
		log.Fatalf("UpdateGrammar failed: %v", err)
	}
	if err := s.RestoreGrammarVersion("g", 1); err != nil {
		log.Fatalf("RestoreGrammarVersion failed: %v", err)
	}
	g, err := s.GetGrammar("g")
	if err != nil {
		log.Fatalf("GetGrammar failed: %v", err)
	}
	if g == nil || g.Version != 3 || g.Text != "S -> NP VP" {
		log.Fatalf("GetGrammar expected restored v3, got %+v", g)
	}
	fmt.Println("  ✓ Grammar versioning works")
}
