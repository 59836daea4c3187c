package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           chatgate API
// @version         1.0
// @description     HTTP API for serialized chat generation against a local LLM engine.
//
// @contact.name   chatgate maintainers
// @contact.url    https://github.com/your-org/chatgate
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
