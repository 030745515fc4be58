// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ir

// OpType is the closed set of node kinds of the graph.
//
// Passes match on Transpose, Reshape and Constant; every other kind is treated opaquely through
// the Node accessors.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant
	OpTypeTranspose
	OpTypeReshape
	OpTypeIdentity
	OpTypeAdd
	OpTypeNeg
)
