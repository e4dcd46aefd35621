package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"liquidityAdapter/internal/adapter"
	"liquidityAdapter/internal/bins"
	"liquidityAdapter/internal/config"
	"liquidityAdapter/internal/model"
	"liquidityAdapter/internal/simpool"
	"liquidityAdapter/internal/storage"
)

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.Bytes()
}

func TestSelectBinsCommand(t *testing.T) {
	raw := execute(t, "select-bins", "--active", "27000", "--span", "100", "--preferred-bins", "4", "--log-level", "error")

	var got bins.SelectedBins
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := bins.SelectedBins{
		Active: 27000,
		Lower:  []uint32{26900, 26800},
		Higher: []uint32{27100, 27200},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestSelectBinsRequiresSpan(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"select-bins", "--active", "10", "--log-level", "error"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected missing span error")
	}
}

func TestSimulateCommand(t *testing.T) {
	raw := execute(t, "simulate",
		"--scenario", "../../internal/simpool/testdata/scenario.yaml",
		"--store", "none",
		"--log-level", "error",
	)

	var closed []storage.PositionRecord
	if err := json.Unmarshal(raw, &closed); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(closed) != 2 {
		t.Fatalf("expected 2 closed positions, got %d", len(closed))
	}
	if closed[0].ID != "cp" || closed[1].ID != "bin" {
		t.Fatalf("unexpected order: %s, %s", closed[0].ID, closed[1].ID)
	}
	for _, record := range closed {
		if !record.Closed() {
			t.Fatalf("position %s not marked closed", record.ID)
		}
		if len(record.Resources) != 2 {
			t.Fatalf("position %s: expected 2 resources, got %d", record.ID, len(record.Resources))
		}
	}
	if closed[1].Family != "bin" || closed[1].Lockup.String() != "6mo" {
		t.Fatalf("unexpected bin record: %+v", closed[1])
	}
}

func TestSimulateRejectsUnknownStore(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"simulate", "--scenario", "x.yaml", "--store", "s3"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected store error")
	}
}

func TestBuildRegistryBindsEnabledFamiliesOnly(t *testing.T) {
	scenario, err := simpool.LoadScenario("../../internal/simpool/testdata/scenario.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	world, err := scenario.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	registry, err := buildRegistry(config.Config{Families: []string{"constant_product"}}, world, nil, nil)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	a, err := registry.ForPool(common.HexToAddress("0x0000000000000000000000000000000000000c04"))
	if err != nil {
		t.Fatalf("constant product pool: %v", err)
	}
	if a.Family() != adapter.FamilyConstantProduct {
		t.Fatalf("unexpected family %s", a.Family())
	}
	if _, err := registry.ForPool(common.HexToAddress("0x0000000000000000000000000000000000000c01")); !errors.Is(err, model.ErrNoAdapter) {
		t.Fatalf("expected disabled bin pool to be unbound, got %v", err)
	}

	if _, err := buildRegistry(config.Config{Families: []string{"orderbook"}}, world, nil, nil); err == nil {
		t.Fatalf("expected unknown family error")
	}
}
