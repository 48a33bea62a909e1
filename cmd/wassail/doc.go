// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

// Wassail collects facts about a compute node and checks them against
// expectations. See the commands package for the command tree.
package main
