// SPDX-License-Identifier: MPL-2.0

// Package ionpkg builds packages and keeps the registry of live instances.
//
// A Package is identified by vendor and project name. Creating one resolves
// its root directory, reads autoloader.json, decides debug and cache modes,
// reads its version from version.json or composer.json, and creates one
// autoload.Adapter per naming convention for each search path that exists.
// The adapters' hooks are appended to the registry's Dispatcher.
//
// A Registry holds at most one instance per name. Registering a lower version
// over a higher one destroys the higher instance first; otherwise the new
// instance simply takes the slot. Close runs the cache saves scheduled for
// every cache-enabled adapter and should be deferred by the host.
package ionpkg
