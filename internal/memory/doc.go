// Package memory implements the agent memory system for LLMux.
// It provides capabilities for:
// 1. Session Memory: Managing short-term conversation history.
// 2. Long-term Memory: Storing and retrieving knowledge using vector stores.
// 3. Entity Memory: Managing structured information about users and entities.
package memory
