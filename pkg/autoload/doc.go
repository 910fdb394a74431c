// SPDX-License-Identifier: MPL-2.0

// Package autoload maps class names to source files under an include path.
//
// An Adapter applies one naming convention (PSR-0 or PSR-4) beneath a single
// include directory and hands every file it finds to the host Runtime. When
// caching is enabled, successful resolutions are remembered in memory and
// persisted to an ion-auto-load-<deployment id>.json file next to the sources,
// so a later process with the same include path, runtime version and package
// version can skip the filesystem probe entirely.
//
// A Dispatcher chains the resolution hooks of many adapters in registration
// order, standing in for the host runtime's class-not-found callback list.
package autoload
