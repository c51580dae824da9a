package platform

// Built-in selector tables. Primaries lean on aria roles and data
// attributes; fallbacks are class- and structure-based so extraction keeps
// working when one locator drifts.

func builtins() []*Platform {
	return []*Platform{linkedin(), facebook(), instagram()}
}

func linkedin() *Platform {
	return &Platform{
		ID:            "linkedin",
		Label:         "LinkedIn Messaging",
		Hosts:         []string{"linkedin.com"},
		PathPrefix:    "/messaging",
		CanonicalName: "LinkedIn",
		Selectors: map[Role]SelectorPair{
			ChatList: {
				Primary:  `ul.msg-conversations-container__conversations-list`,
				Fallback: `.msg-conversations-container ul`,
			},
			ChatListItem: {
				Primary:  `li.msg-conversation-listitem`,
				Fallback: `li.msg-conversations-container__convo-item`,
			},
			ChatName: {
				Primary:  `.msg-conversation-listitem__participant-names`,
				Fallback: `h3`,
			},
			ChatPreview: {
				Primary:  `.msg-conversation-card__message-snippet`,
				Fallback: `p`,
			},
			ChatTime: {
				Primary:  `time.msg-conversation-listitem__time-stamp`,
				Fallback: `time`,
			},
			ChatLink: {
				Primary:  `a.msg-conversation-listitem__link`,
				Fallback: `a[href*="/messaging/thread/"]`,
			},
			ChatHeader: {
				Primary:  `.msg-entity-lockup__entity-title`,
				Fallback: `.msg-thread h2`,
			},
			MessagesPane: {
				Primary:  `.msg-s-message-list-content`,
				Fallback: `.msg-s-message-list`,
			},
			MessageGroup: {
				Primary:  `li.msg-s-message-list__event`,
				Fallback: `.msg-s-message-list li`,
			},
			GroupSender: {
				Primary:  `.msg-s-message-group__name`,
				Fallback: `.msg-s-message-group__meta a`,
			},
			GroupTime: {
				Primary:  `time.msg-s-message-group__timestamp`,
				Fallback: `time`,
			},
			MessageItem: {
				Primary:  `.msg-s-event-listitem`,
				Fallback: `[data-event-urn]`,
			},
			ItemSender: {
				Primary:  `.msg-s-event-listitem__name`,
				Fallback: `.msg-s-event-listitem a[href*="/in/"]`,
			},
			ItemTime: {
				Primary:  `time.msg-s-event-listitem__timestamp`,
				Fallback: `time`,
			},
			MessageBubble: {
				Primary:  `.msg-s-event-listitem__body`,
				Fallback: `.msg-s-event__content p`,
			},
			MessageText: {
				Primary:  `p.msg-s-event-listitem__body`,
				Fallback: `.msg-s-event-listitem__body`,
			},
		},
	}
}

func facebook() *Platform {
	return &Platform{
		ID:            "facebook",
		Label:         "Facebook Messenger",
		Hosts:         []string{"facebook.com", "messenger.com"},
		PathPrefix:    "/messages",
		CanonicalName: "Facebook",
		Selectors: map[Role]SelectorPair{
			ChatList: {
				Primary:  `[aria-label="Chats"]`,
				Fallback: `[role="navigation"] [role="grid"]`,
			},
			ChatListItem: {
				Primary:  `[aria-label="Chats"] [role="row"]`,
				Fallback: `a[href*="/messages/t/"]`,
			},
			ChatName: {
				Primary:  `span[dir="auto"] > span > span`,
				Fallback: `span[dir="auto"]`,
			},
			ChatPreview: {
				Primary:  `span[dir="auto"]:last-of-type`,
				Fallback: `span`,
			},
			ChatTime: {
				Primary:  `abbr`,
				Fallback: `span[aria-hidden="true"]`,
			},
			ChatLink: {
				Primary:  `a[href*="/messages/t/"]`,
				Fallback: `a[role="link"]`,
			},
			ChatHeader: {
				Primary:  `[role="main"] h1 span`,
				Fallback: `[role="main"] h1`,
			},
			MessagesPane: {
				Primary:  `[role="main"] [role="grid"]`,
				Fallback: `[aria-label*="Messages in conversation"]`,
			},
			MessageGroup: {
				Primary:  `[role="main"] [role="gridcell"]`,
				Fallback: `[data-scope="messages_table"]`,
			},
			GroupSender: {
				Primary:  `h4 span`,
				Fallback: `h4`,
			},
			GroupTime: {
				Primary:  `h4 + span`,
				Fallback: `span[aria-hidden="true"]`,
			},
			MessageItem: {
				Primary:  `[role="row"] [dir="auto"]`,
				Fallback: `div[dir="auto"]`,
			},
			ItemSender: {
				Primary:  `h5 span`,
				Fallback: `h5`,
			},
			ItemTime: {
				Primary:  `[data-tooltip-content]`,
				Fallback: `abbr`,
			},
			MessageBubble: {
				Primary:  `[role="presentation"] [dir="auto"]`,
				Fallback: `div[dir="auto"]`,
			},
			MessageText: {
				Primary:  `[dir="auto"]`,
				Fallback: `span`,
			},
		},
	}
}

func instagram() *Platform {
	return &Platform{
		ID:            "instagram",
		Label:         "Instagram Direct",
		Hosts:         []string{"instagram.com"},
		PathPrefix:    "/direct",
		CanonicalName: "Instagram",
		Selectors: map[Role]SelectorPair{
			ChatList: {
				Primary:  `[aria-label="Chats"]`,
				Fallback: `div[style*="overflow"] > div > div`,
			},
			ChatListItem: {
				Primary:  `[aria-label="Chats"] [role="button"]`,
				Fallback: `a[href*="/direct/t/"]`,
			},
			ChatName: {
				Primary:  `span[dir="auto"]`,
				Fallback: `span`,
			},
			ChatPreview: {
				Primary:  `span[dir="auto"]:last-child`,
				Fallback: `span:last-child`,
			},
			ChatTime: {
				Primary:  `time`,
				Fallback: `abbr`,
			},
			ChatLink: {
				Primary:  `a[href*="/direct/t/"]`,
				Fallback: `a[role="link"]`,
			},
			ChatHeader: {
				Primary:  `[role="main"] header span`,
				Fallback: `header a[href^="/"]`,
			},
			MessagesPane: {
				Primary:  `[role="main"] [role="grid"]`,
				Fallback: `section main div[style*="overflow"]`,
			},
			MessageGroup: {
				Primary:  `[role="main"] [role="row"]`,
				Fallback: `div[data-scope]`,
			},
			GroupSender: {
				Primary:  `h5 span`,
				Fallback: `h5`,
			},
			GroupTime: {
				Primary:  `time`,
				Fallback: `span[aria-hidden="true"]`,
			},
			MessageItem: {
				Primary:  `[role="row"] [dir="auto"]`,
				Fallback: `div[dir="auto"]`,
			},
			ItemSender: {
				Primary:  `h5`,
				Fallback: `a[href^="/"] span`,
			},
			ItemTime: {
				Primary:  `time`,
				Fallback: `abbr`,
			},
			MessageBubble: {
				Primary:  `div[dir="auto"]`,
				Fallback: `span[dir="auto"]`,
			},
			MessageText: {
				Primary:  `[dir="auto"]`,
				Fallback: `span`,
			},
		},
	}
}
