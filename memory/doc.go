// Package memory holds the conversational memory shared by the agents of one
// session. Window keeps the most recent user/assistant exchanges and renders
// them as the "chat history" block of a prompt.
//
// A *Window is shared by pointer: an agent and the agent it delegates to hold
// the same window, so both see the same conversation.
package memory
