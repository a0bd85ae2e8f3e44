// Package config manages user-level settings stored at
// ~/.composer-yaml/config.yaml. Values can be overridden per process with
// COMPOSER_YAML_<KEY> environment variables, and are resolved into a
// validated [Settings] before any manifest is touched.
package config
