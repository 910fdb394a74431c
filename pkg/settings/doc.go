// SPDX-License-Identifier: MPL-2.0

// Package settings provides the read-only key/value view over a package's
// autoloader.json file.
//
// Settings keep the top-level key order of the document, so a value can be
// addressed by name or by its position. Typed getters coerce values with the
// loose rules package authors expect from the host language: "0" and "" are
// false, numeric strings convert to numbers and arrays become "Array" when
// read as strings. Every write attempt fails with ErrReadOnly.
package settings
