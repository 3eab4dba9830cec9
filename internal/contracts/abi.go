// Package contracts holds hand-maintained abigen-style bindings for the
// four contracts named in spec §6: CacheManager, CacheManagerAutomation
// (event sources) and ArbWasmCache, ArbWasm (call-only). They follow the
// shape bind.NewBoundContract-generated code takes in go-ethereum: a
// *bind.BoundContract plus one log-range helper (FilterRange), log
// decoding (EventNameOf, UnpackLog) and typed Call helpers per view
// method.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// mustParseABI parses a minimal, hand-written ABI fragment covering only
// the methods/events this indexer consumes. Real deployments would load
// the full compiler-emitted ABI JSON; only the consumed surface is
// declared here to keep the fragment auditable.
func mustParseABI(fragment string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic("contracts: invalid ABI fragment: " + err.Error())
	}
	return parsed
}

const cacheManagerABIJSON = `[
  {"type":"event","name":"InsertBid","inputs":[
    {"name":"codehash","type":"bytes32","indexed":true},
    {"name":"program","type":"address","indexed":true},
    {"name":"bid","type":"uint192","indexed":false},
    {"name":"size","type":"uint64","indexed":false}]},
  {"type":"event","name":"DeleteBid","inputs":[
    {"name":"codehash","type":"bytes32","indexed":true},
    {"name":"bid","type":"uint192","indexed":false},
    {"name":"size","type":"uint64","indexed":false}]},
  {"type":"event","name":"Pause","inputs":[]},
  {"type":"event","name":"Unpause","inputs":[]},
  {"type":"event","name":"SetCacheSize","inputs":[
    {"name":"newCacheSize","type":"uint64","indexed":false}]},
  {"type":"event","name":"SetDecayRate","inputs":[
    {"name":"decay","type":"uint64","indexed":false}]},
  {"type":"event","name":"Initialized","inputs":[
    {"name":"version","type":"uint8","indexed":false}]},
  {"type":"function","name":"getMinBid","stateMutability":"view","inputs":[
    {"name":"size","type":"uint64"}],"outputs":[{"name":"","type":"uint192"}]},
  {"type":"function","name":"getEntries","stateMutability":"view","inputs":[],
    "outputs":[{"name":"","type":"tuple[]","components":[
      {"name":"code","type":"bytes32"},
      {"name":"size","type":"uint64"},
      {"name":"bid","type":"uint192"}]}]},
  {"type":"function","name":"decay","stateMutability":"view","inputs":[],
    "outputs":[{"name":"","type":"uint64"}]},
  {"type":"function","name":"cacheSize","stateMutability":"view","inputs":[],
    "outputs":[{"name":"","type":"uint64"}]},
  {"type":"function","name":"queueSize","stateMutability":"view","inputs":[],
    "outputs":[{"name":"","type":"uint64"}]},
  {"type":"function","name":"isPaused","stateMutability":"view","inputs":[],
    "outputs":[{"name":"","type":"bool"}]}
]`

const cacheManagerAutomationABIJSON = `[
  {"type":"event","name":"ContractAdded","inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"program","type":"address","indexed":true},
    {"name":"maxBid","type":"uint256","indexed":false}]},
  {"type":"event","name":"ContractUpdated","inputs":[
    {"name":"program","type":"address","indexed":true},
    {"name":"maxBid","type":"uint256","indexed":false}]}
]`

const arbWasmCacheABIJSON = `[
  {"type":"function","name":"codehashIsCached","stateMutability":"view",
    "inputs":[{"name":"codehash","type":"bytes32"}],
    "outputs":[{"name":"","type":"bool"}]}
]`

const arbWasmABIJSON = `[
  {"type":"function","name":"programVersion","stateMutability":"view",
    "inputs":[{"name":"program","type":"address"}],
    "outputs":[{"name":"","type":"uint16"}]}
]`

// CacheManagerABI, CacheManagerAutomationABI, ArbWasmCacheABI and ArbWasmABI
// are parsed once at package init and shared by every bound contract
// instance the Provider Manager memoizes per chain.
var (
	CacheManagerABI           = mustParseABI(cacheManagerABIJSON)
	CacheManagerAutomationABI = mustParseABI(cacheManagerAutomationABIJSON)
	ArbWasmCacheABI           = mustParseABI(arbWasmCacheABIJSON)
	ArbWasmABI                = mustParseABI(arbWasmABIJSON)
)

// EventNames lists every event name CacheManagerABI/CacheManagerAutomationABI
// declare, in no particular order; the Real-Time Listener subscribes to
// each of them.
func EventNames(a abi.ABI) []string {
	names := make([]string, 0, len(a.Events))
	for name := range a.Events {
		names = append(names, name)
	}
	return names
}
