// Package models defines the data model for the face sync pipeline.
//
// Types here are plain data carriers shared between the sync engine, the ML
// stages, and the persistence layer. They hold no behavior beyond validation.
package models
